package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/autoplan/internal/calendar/domain"
)

func TestFreeBusySource_Busy(t *testing.T) {
	var gotItems []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/freeBusy"), r.URL.Path)
		var body struct {
			TimeMin string `json:"timeMin"`
			Items   []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-10-19T00:00:00Z", body.TimeMin)
		for _, item := range body.Items {
			gotItems = append(gotItems, item.ID)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"kind": "calendar#freeBusy",
			"calendars": {
				"primary": {"busy": [
					{"start": "2026-10-19T09:00:00Z", "end": "2026-10-19T10:00:00Z"},
					{"start": "garbage", "end": "2026-10-19T12:00:00Z"}
				]},
				"team": {"errors": [{"domain": "global", "reason": "notFound"}]}
			}
		}`))
	}))
	defer server.Close()

	srv, err := newService(context.Background(), server.Client(), server.URL+"/")
	require.NoError(t, err)

	src := NewFreeBusySource("", srv, []string{"primary", "team"}, nil)
	assert.Equal(t, "google", src.Name())
	assert.Equal(t, domain.ProviderGoogle, src.Provider())

	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	intervals, err := src.Busy(context.Background(), start, start.Add(24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, []string{"primary", "team"}, gotItems)
	require.Len(t, intervals, 1)
	assert.Equal(t, "google", intervals[0].SourceID)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), intervals[0].Start.UTC())
	assert.Equal(t, time.Hour, intervals[0].End.Sub(intervals[0].Start))
}

func TestFreeBusySource_RequestFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 400, "message": "boom"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	srv, err := newService(context.Background(), server.Client(), server.URL+"/")
	require.NoError(t, err)

	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	_, err = NewFreeBusySource("cal", srv, nil, nil).Busy(context.Background(), start, start.Add(time.Hour))
	assert.Error(t, err)
}

func TestNewService_Credentials(t *testing.T) {
	_, err := NewService(context.Background(), Credentials{})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewService(context.Background(), Credentials{TokenFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "token.json")
	data, err := json.Marshal(&oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	srv, err := NewService(context.Background(), Credentials{ClientID: "id", ClientSecret: "secret", TokenFile: path})
	require.NoError(t, err)
	assert.NotNil(t, srv)
}
