package nexon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOCID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/id", r.URL.Path)
		assert.Equal(t, "고양이메루", r.URL.Query().Get("character_name"))
		assert.Equal(t, "test-key", r.Header.Get("x-nxopen-api-key"))
		json.NewEncoder(w).Encode(map[string]string{"ocid": "abc123"})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithTimeout(5*time.Second))

	ocid, err := client.GetOCID(context.Background(), "고양이메루")
	require.NoError(t, err)
	assert.Equal(t, "abc123", ocid)
}

func TestGetOCIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.GetOCID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOCIDCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"ocid": "abc123"})
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithOCIDCache(8, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ocid, err := client.GetOCID(ctx, "meru")
		require.NoError(t, err)
		assert.Equal(t, "abc123", ocid)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetCharacterBasic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/character/basic", r.URL.Path)
		assert.Equal(t, "abc123", r.URL.Query().Get("ocid"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("date"))
		w.Write([]byte(`{
			"date": "2024-03-01T00:00+09:00",
			"character_name": "meru",
			"world_name": "Scania",
			"character_gender": "F",
			"character_class": "Bishop",
			"character_class_level": "6",
			"character_level": 265,
			"character_exp": 123456789012,
			"character_exp_rate": "45.123",
			"character_guild_name": null,
			"character_image": "https://open.api.nexon.com/static/maplestory/character/look/x",
			"character_date_create": "2019-06-01T00:00+09:00",
			"access_flag": "true",
			"liberation_quest_clear_flag": "false"
		}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))
	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	basic, err := client.GetCharacterBasic(context.Background(), "abc123", date)
	require.NoError(t, err)
	assert.Equal(t, 265, basic.CharacterLevel)
	require.NotNil(t, basic.CharacterExp)
	assert.Equal(t, int64(123456789012), *basic.CharacterExp)
	assert.Nil(t, basic.CharacterGuildName)

	rate, err := basic.ExpRate()
	require.NoError(t, err)
	assert.InDelta(t, 45.123, rate, 1e-9)
}

func TestGetCharacterBasicLatestOmitsDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["date"]
		assert.False(t, ok, "latest request must not carry a date")
		w.Write([]byte(`{"character_level": 10, "character_exp": 5, "character_exp_rate": "1.0"}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.GetCharacterBasic(context.Background(), "abc123", time.Time{})
	require.NoError(t, err)
}

func TestGetCharacterBasicNoRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"date": null, "character_name": null, "character_exp": null}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.GetCharacterBasic(context.Background(), "abc123", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"name": "OPENAPI00004", "message": "Please input valid parameter"}}`))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.GetOCID(context.Background(), "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "OPENAPI00004", apiErr.Name)
	assert.Contains(t, apiErr.Error(), "status 400")
}

func TestUpstreamErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.GetCharacterBasic(context.Background(), "abc", time.Time{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "boom", apiErr.Message)
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient("k", WithBaseURL(url))

	_, err := client.GetOCID(context.Background(), "x")
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "fetch id", tErr.Op)
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL), WithRateLimit(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetOCID(ctx, "x")
	assert.Error(t, err)
}

func TestInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	client := NewClient("k", WithBaseURL(server.URL))

	_, err := client.GetOCID(context.Background(), "x")
	assert.Error(t, err)
}

func TestExpRate(t *testing.T) {
	c := &CharacterBasic{CharacterExpRate: ""}
	v, err := c.ExpRate()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	c.CharacterExpRate = "abc"
	_, err = c.ExpRate()
	assert.Error(t, err)
}

func TestDefaultClient(t *testing.T) {
	client := NewClient("k")
	assert.Equal(t, "https://open.api.nexon.com/maplestory/v1", client.baseURL)
	assert.Nil(t, client.limiter)
	assert.Nil(t, client.ocidCache)
}
