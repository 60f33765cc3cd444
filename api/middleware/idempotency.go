package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/vastralabs/vastra-backend/api/responses"
	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	pkgredis "github.com/vastralabs/vastra-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// Checkout and order mutations keep their records a full week since a
	// retried duplicate there costs real money.
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotentRoutes maps "METHOD chi-route-pattern" to the record TTL.
// Routes absent from this table pass through untouched.
var idempotentRoutes = map[string]time.Duration{
	"POST /api/v1/cart/items":                     defaultIdempotencyTTL,
	"POST /api/admin/v1/products":                 defaultIdempotencyTTL,
	"POST /api/admin/v1/categories":               defaultIdempotencyTTL,
	"POST /api/admin/v1/collections":              defaultIdempotencyTTL,
	"POST /api/admin/v1/coupons":                  defaultIdempotencyTTL,
	"POST /api/admin/v1/coupons/{couponId}/rules": defaultIdempotencyTTL,
	"POST /api/v1/checkout":                       criticalIdempotencyTTL,
	"POST /api/admin/v1/orders/{orderId}/status":  criticalIdempotencyTTL,
	"POST /api/admin/v1/orders/{orderId}/payment": criticalIdempotencyTTL,
}

// storedResponse is what we persist in Redis for replay.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first response for a given Idempotency-Key on
// covered mutation routes. A key reused with a different body is a
// conflict, not a replay.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := lookupRouteTTL(r)
			if !covered || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			bodySum := sha256.Sum256(body)
			requestHash := base64.StdEncoding.EncodeToString(bodySum[:])

			// Scope keys per caller so two admins (or two storefront
			// sessions) can use the same key value independently.
			scope := strings.Join([]string{
				AdminIDFromContext(ctx),
				strings.TrimSpace(r.Header.Get("X-Session-Id")),
				r.Method,
				r.URL.Path,
			}, "|")
			key := store.IdempotencyKey(scope, clientKey)

			raw, err := store.Get(ctx, key)
			if err != nil && !errors.Is(err, redis.Nil) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if raw != "" {
				var prior storedResponse
				if err := json.Unmarshal([]byte(raw), &prior); err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if prior.RequestHash != requestHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, prior)
				return
			}

			capture := &bufferedWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			record := storedResponse{
				Status:      capture.statusOr(http.StatusOK),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				ContentType: capture.Header().Get("Content-Type"),
				RequestHash: requestHash,
			}
			payload, err := json.Marshal(record)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "marshal idempotency record", err)
				}
				return
			}
			if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

// lookupRouteTTL resolves the request against the route table. Inside
// chi the matched pattern is used, so path params do not fragment keys;
// outside chi (tests) the raw path stands in.
func lookupRouteTTL(r *http.Request) (time.Duration, bool) {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		pattern = rctx.RoutePattern()
	}
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	ttl, ok := idempotentRoutes[r.Method+" "+pattern]
	return ttl, ok
}

func replay(w http.ResponseWriter, prior storedResponse) {
	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.WriteHeader(prior.Status)
	if decoded, err := base64.StdEncoding.DecodeString(prior.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// bufferedWriter tees the response into memory so it can be stored for
// replay.
type bufferedWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferedWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

func (b *bufferedWriter) statusOr(fallback int) int {
	if b.status == 0 {
		return fallback
	}
	return b.status
}
