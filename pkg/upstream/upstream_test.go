package upstream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltext-migrate/pkg/testutils"
)

func newTestChecker(t *testing.T, handler http.HandlerFunc) *Checker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return NewCheckerWithClient(client)
}

func TestCheckerFind(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *Existing
		wantErr bool
	}{
		{
			name:   "exists",
			status: http.StatusOK,
			body:   `{"full_name": "salt-extensions/saltext-vault", "html_url": "https://github.com/salt-extensions/saltext-vault", "archived": false}`,
			want: &Existing{
				FullName: "salt-extensions/saltext-vault",
				URL:      "https://github.com/salt-extensions/saltext-vault",
			},
		},
		{
			name:   "missing",
			status: http.StatusNotFound,
			body:   `{"message": "Not Found"}`,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"message": "boom"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			checker := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			got, err := checker.Find(testutils.Context(t), "saltext-vault")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "/repos/salt-extensions/saltext-vault", gotPath)
		})
	}
}
