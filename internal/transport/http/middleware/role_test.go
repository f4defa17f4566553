package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtinfra "github.com/exam-registration/internal/infrastructure/jwt"
	"github.com/exam-registration/internal/transport/http/respond"
)

func TestRequireRole(t *testing.T) {
	cases := map[string]struct {
		claims *jwtinfra.Claims
		roles  []string
		status int
		kind   string
	}{
		"no claims":        {roles: []string{"admin"}, status: http.StatusUnauthorized, kind: "unauthorized"},
		"applicant denied": {claims: &jwtinfra.Claims{Role: "applicant"}, roles: []string{"admin"}, status: http.StatusForbidden, kind: "forbidden"},
		"admin admitted":   {claims: &jwtinfra.Claims{Role: "admin"}, roles: []string{"admin"}, status: http.StatusOK},
		"any listed role":  {claims: &jwtinfra.Claims{Role: "applicant"}, roles: []string{"admin", "applicant"}, status: http.StatusOK},
		"empty role":       {claims: &jwtinfra.Claims{}, roles: []string{"admin"}, status: http.StatusForbidden, kind: "forbidden"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/slots/2025-06-04", nil)
			if tc.claims != nil {
				req = req.WithContext(context.WithValue(context.Background(), claimsKey, tc.claims))
			}
			rr := httptest.NewRecorder()
			RequireRole(tc.roles...)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			if tc.kind != "" {
				var p respond.Problem
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
				assert.Equal(t, tc.kind, p.Kind)
			}
		})
	}
}
