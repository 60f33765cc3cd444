package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/vastralabs/vastra-backend/pkg/errors"
)

const sessionHeader = "X-Session-Id"

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func sessionIDFromRequest(r *http.Request) (string, error) {
	sessionID := strings.TrimSpace(r.Header.Get(sessionHeader))
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required")
	}
	return sessionID, nil
}
