package persistence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cx-tal-miterani/avi-itinerary/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItinerary() models.Itinerary {
	start := civil.Date{Year: 2024, Month: 3, Day: 10}
	it := models.NewItinerary()
	it.Destination = "Lisbon"
	it.StartDate = &start
	it.Days[0].Date = &start
	return *it
}

func TestRemoteClient_Create(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		expectedID string
		expectErr  error
	}{
		{
			name:       "string id",
			status:     http.StatusOK,
			body:       `{"success":true,"roteiro_id":"abc"}`,
			expectedID: "abc",
		},
		{
			name:       "numeric id",
			status:     http.StatusOK,
			body:       `{"success":true,"roteiro_id":42}`,
			expectedID: "42",
		},
		{
			name:      "success false",
			status:    http.StatusOK,
			body:      `{"success":false,"error":"quota"}`,
			expectErr: ErrRemoteSync,
		},
		{
			name:      "missing id",
			status:    http.StatusOK,
			body:      `{"success":true}`,
			expectErr: ErrRemoteSync,
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      `boom`,
			expectErr: ErrRemoteSync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, pathCreate, r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewRemoteClient(srv.URL, time.Second)
			id, err := client.Create(context.Background(), sampleItinerary())

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, id)
		})
	}
}

func TestRemoteClient_CreateSendsSnapshot(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"roteiro_id":"abc"}`))
	}))
	defer srv.Close()

	_, err := NewRemoteClient(srv.URL, time.Second).Create(context.Background(), sampleItinerary())
	require.NoError(t, err)

	assert.Nil(t, got["id"])
	assert.Equal(t, "Lisbon", got["destination"])
	assert.Equal(t, "2024-03-10", got["startDate"])
	assert.Len(t, got["days"], 1)
}

func TestRemoteClient_UpdateRequiresID(t *testing.T) {
	client := NewRemoteClient("http://127.0.0.1:1", time.Second)
	err := client.Update(context.Background(), sampleItinerary())
	assert.ErrorIs(t, err, ErrRemoteSync)
}

func TestRemoteClient_Update(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, pathUpdate, r.URL.Path)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	it := sampleItinerary()
	id := "abc"
	it.ID = &id

	err := NewRemoteClient(srv.URL+"/", time.Second).Update(context.Background(), it)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRemoteClient_Get(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		expectedID *string
		expectErr  error
	}{
		{
			name:       "numeric id",
			status:     http.StatusOK,
			body:       `{"success":true,"roteiro":{"id":42,"destination":"Lisbon","startDate":"2024-03-10","travelers":2,"days":[]}}`,
			expectedID: strPtr("42"),
		},
		{
			name:   "missing id",
			status: http.StatusOK,
			body:   `{"success":true,"roteiro":{"destination":"Lisbon","startDate":"2024-03-10","travelers":2,"days":[]}}`,
		},
		{
			name:       "found",
			status:     http.StatusOK,
			body:       `{"success":true,"roteiro":{"id":"abc","destination":"Lisbon","startDate":"2024-03-10","endDate":null,"travelers":2,"days":[{"date":"2024-03-10","title":"Day 1 (Arrival)","blocks":[]}]}}`,
			expectedID: strPtr("abc"),
		},
		{
			name:      "not found status",
			status:    http.StatusNotFound,
			body:      `{}`,
			expectErr: ErrNotFound,
		},
		{
			name:      "not found body",
			status:    http.StatusOK,
			body:      `{"success":false,"error":"missing"}`,
			expectErr: ErrNotFound,
		},
		{
			name:      "bad json",
			status:    http.StatusOK,
			body:      `{`,
			expectErr: ErrRemoteSync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, pathGet, r.URL.Path)
				assert.Equal(t, "abc", r.URL.Query().Get("id"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			it, err := NewRemoteClient(srv.URL, time.Second).Get(context.Background(), "abc")
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, it.ID)
			assert.Equal(t, 2, it.Travelers)
			assert.Equal(t, "2024-03-10", it.StartDate.String())
		})
	}
}

func strPtr(s string) *string {
	return &s
}
