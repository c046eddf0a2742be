package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraphClient(handler http.Handler) (*GraphClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := &GraphClient{
		BaseURL:    srv.URL,
		AppID:      "app",
		AppSecret:  "secret",
		HTTPClient: srv.Client(),
	}
	return client, srv
}

func graphErrorBody(code, subcode int, transient bool) string {
	return fmt.Sprintf(`{"error":{"message":"boom","type":"OAuthException","code":%d,"error_subcode":%d,"is_transient":%t}}`,
		code, subcode, transient)
}

func TestGraphErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"rate limit code 4", 400, graphErrorBody(4, 0, false), KindTransient},
		{"rate limit code 17", 400, graphErrorBody(17, 0, false), KindTransient},
		{"page level throttle", 400, graphErrorBody(32, 0, false), KindTransient},
		{"transient flag set", 400, graphErrorBody(1, 0, true), KindTransient},
		{"expired token", 400, graphErrorBody(190, 460, false), KindConfig},
		{"missing permission", 403, graphErrorBody(10, 0, false), KindPermission},
		{"permission range", 403, graphErrorBody(230, 0, false), KindPermission},
		{"object deleted", 404, graphErrorBody(100, 33, false), KindNotFound},
		{"unknown graph error", 400, graphErrorBody(1, 0, false), KindUnknown},
		{"server error without envelope", 502, "Bad Gateway", KindTransient},
		{"client error without envelope", 418, "teapot", KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestGraphClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			var out map[string]interface{}
			err := client.Get(context.Background(), "me/posts", url.Values{}, "facebook", &out)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestGraphGetDecodesBody(t *testing.T) {
	client, srv := newTestGraphClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		fmt.Fprint(w, `{"id":"123","name":"Page"}`)
	}))
	defer srv.Close()

	params := url.Values{}
	params.Set("access_token", "tok")

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := client.Get(context.Background(), "123", params, "facebook", &out)
	require.NoError(t, err)
	assert.Equal(t, "123", out.ID)
	assert.Equal(t, "Page", out.Name)
}

func TestExchangeLongLivedToken(t *testing.T) {
	client, srv := newTestGraphClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "short", q.Get("fb_exchange_token"))
		fmt.Fprint(w, `{"access_token":"long-lived","token_type":"bearer","expires_in":5184000}`)
	}))
	defer srv.Close()

	token, expiresAt, err := client.ExchangeLongLivedToken(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, "long-lived", token)
	assert.WithinDuration(t, time.Now().Add(5184000*time.Second), expiresAt, 5*time.Second)
}

func TestExchangeLongLivedTokenWithoutExpiry(t *testing.T) {
	client, srv := newTestGraphClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"page-token","token_type":"bearer"}`)
	}))
	defer srv.Close()

	_, expiresAt, err := client.ExchangeLongLivedToken(context.Background(), "short")
	require.NoError(t, err)

	// Tokens returned without expiry are treated as the 60 day page token.
	assert.WithinDuration(t, time.Now().Add(60*24*time.Hour), expiresAt, 5*time.Second)
}

func TestListPages(t *testing.T) {
	client, srv := newTestGraphClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":"p1","name":"First","access_token":"t1","category":"Media"},
			{"id":"p2","name":"Second","access_token":"t2","category":"Brand"}
		]}`)
	}))
	defer srv.Close()

	pages, err := client.ListPages(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "p1", pages[0].ID)
	assert.Equal(t, "t2", pages[1].AccessToken)
}
