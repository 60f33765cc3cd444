package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "loading coupon")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("code = %s, want %s", err.Code(), CodeDependency)
	}
}

func TestAsUnwrapsThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotFound, "coupon not found")
	outer := fmt.Errorf("validating: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("code = %s, want %s", typed.Code(), CodeNotFound)
	}
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	t.Parallel()

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain errors should not convert")
	}
	if As(nil) != nil {
		t.Fatal("nil should not convert")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", meta.HTTPStatus)
	}
}

func TestOutOfStockMetadata(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(CodeOutOfStock)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("status = %d, want 409", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatal("stock errors should surface details")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	root := stdErrors.New("disk full")
	err := Wrap(CodeInternal, root, "persisting order")

	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("code = %s, want %s", d.Code, CodeInternal)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("chain length = %d, want >= 2", len(d.Chain))
	}
}
