package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAMapClient(t *testing.T, handler http.HandlerFunc) *AMapClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewAMapClient("test-key", 2*time.Second)
	client.baseURL = srv.URL
	return client
}

func TestAMapClient_Lookup_Success(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "河南省花园口", r.URL.Query().Get("address"))
		w.Write([]byte(`{"status":"1","info":"OK","geocodes":[{"location":"113.65,34.91"}]}`))
	})

	coord, ok, err := client.Lookup(context.Background(), "河南省花园口")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 34.91, coord.Lat, 1e-9)
	assert.InDelta(t, 113.65, coord.Lon, 1e-9)
}

func TestAMapClient_Lookup_TakesFirstGeocode(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","geocodes":[{"location":"116.40,39.90"},{"location":"0,0"}]}`))
	})

	coord, ok, err := client.Lookup(context.Background(), "北京")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 39.90, coord.Lat, 1e-9)
}

func TestAMapClient_Lookup_APIStatusFailure(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","info":"INVALID_USER_KEY","geocodes":[]}`))
	})

	_, ok, err := client.Lookup(context.Background(), "anywhere")
	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_USER_KEY")
}

func TestAMapClient_Lookup_NoResults(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","info":"OK","geocodes":[]}`))
	})

	_, ok, err := client.Lookup(context.Background(), "不存在的地址")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAMapClient_Lookup_HTTPError(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, ok, err := client.Lookup(context.Background(), "anywhere")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestAMapClient_Lookup_MalformedLocation(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","geocodes":[{"location":"garbage"}]}`))
	})

	_, ok, err := client.Lookup(context.Background(), "anywhere")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestAMapClient_Lookup_OutOfRangeLocation(t *testing.T) {
	client := newTestAMapClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"1","geocodes":[{"location":"113.65,134.91"}]}`))
	})

	_, ok, err := client.Lookup(context.Background(), "anywhere")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestAMapClient_Lookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client := NewAMapClient("test-key", 20*time.Millisecond)
	client.baseURL = srv.URL

	_, ok, err := client.Lookup(context.Background(), "anywhere")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLat float64
		wantLon float64
		wantErr bool
	}{
		{name: "valid", in: "113.65,34.91", wantLat: 34.91, wantLon: 113.65},
		{name: "spaces", in: " 116.40 , 39.90 ", wantLat: 39.90, wantLon: 116.40},
		{name: "single part", in: "113.65", wantErr: true},
		{name: "three parts", in: "1,2,3", wantErr: true},
		{name: "non numeric", in: "a,b", wantErr: true},
		{name: "lat out of range", in: "10,91", wantErr: true},
		{name: "lon out of range", in: "181,10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, err := parseLocation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLat, coord.Lat, 1e-9)
			assert.InDelta(t, tt.wantLon, coord.Lon, 1e-9)
		})
	}
}
