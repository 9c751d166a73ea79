package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avray/openmic/internal/adapters/rest"
	"github.com/avray/openmic/internal/app"
	"github.com/avray/openmic/internal/config"
	"github.com/avray/openmic/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	cfg := &config.Config{Mode: "release", StaticPath: "./testdata", Secret: "test-secret"}
	st := store.New()
	return rest.SetupRouter(context.Background(), cfg, st, app.NewRegistry()), st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUserEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("CreateOmitsPassword", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
			"username": "alice", "password": "hunter2", "name": "Alice",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 1, body["id"])
		assert.NotContains(t, body, "password")
	})

	t.Run("GetUser", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", decode(t, w)["username"])
		assert.NotContains(t, w.Body.String(), "hunter2")
	})

	t.Run("GetUnknownUser", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users/99", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("BadID", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/users/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ValidationFieldErrors", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{"username": "bob"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Contains(t, body, "errors")
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{
			"username": "alice", "password": "pw", "name": "Clone",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestRoomEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	var roomID float64

	t.Run("CreateSeatsHost", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rooms", gin.H{
			"name": "Test", "topic": "Tech", "createdBy": 1,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		roomID = body["id"].(float64)
		assert.Equal(t, true, body["isLive"])

		speakers := body["speakers"].([]any)
		require.Len(t, speakers, 1)
		host := speakers[0].(map[string]any)
		assert.EqualValues(t, 1, host["userId"])
		assert.Equal(t, "host", host["role"])
		assert.Empty(t, body["listeners"])
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rooms", gin.H{"name": "No topic", "createdBy": 1})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w), "errors")
	})

	t.Run("UnknownTopic", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rooms", gin.H{"name": "x", "topic": "Cooking", "createdBy": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ListedWhileLive", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/rooms", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var rooms []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
		require.Len(t, rooms, 1)
		assert.Equal(t, roomID, rooms[0]["id"])
	})

	t.Run("TopicFilter", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/rooms?topic=Music", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var rooms []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
		assert.Empty(t, rooms)

		w = doJSON(t, r, http.MethodGet, "/api/rooms?topic=Bogus", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("EndRoom", func(t *testing.T) {
		path := fmt.Sprintf("/api/rooms/%d/end", int(roomID))
		w := doJSON(t, r, http.MethodPatch, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decode(t, w)["isLive"])

		// Gone from the live listing, still queryable by id.
		w = doJSON(t, r, http.MethodGet, "/api/rooms", nil)
		var rooms []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rooms))
		assert.Empty(t, rooms)

		w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/rooms/%d", int(roomID)), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decode(t, w)["isLive"])
	})

	t.Run("EndUnknownRoom", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPatch, "/api/rooms/999/end", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestParticipantEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/rooms", gin.H{
		"name": "Test", "topic": "Tech", "createdBy": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	roomID := int(decode(t, w)["id"].(float64))
	base := fmt.Sprintf("/api/rooms/%d/participants", roomID)

	t.Run("JoinAsListener", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, base, gin.H{"userId": 5, "role": "listener"})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 5, body["userId"])
		assert.Equal(t, "listener", body["role"])
		assert.Equal(t, false, body["isSpeaking"])
	})

	t.Run("DuplicateJoin", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, base, gin.H{"userId": 5, "role": "speaker"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, base, gin.H{"userId": 6, "role": "moderator"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownRoom", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rooms/999/participants", gin.H{"userId": 5, "role": "listener"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PromoteToSpeaker", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPatch, base+"/5", gin.H{"role": "speaker"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "speaker", decode(t, w)["role"])

		w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/rooms/%d", roomID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Len(t, body["speakers"].([]any), 2)
		assert.Empty(t, body["listeners"])
	})

	t.Run("UpdateUnknownParticipant", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPatch, base+"/777", gin.H{"isMuted": true})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("LeaveAlwaysNoContent", func(t *testing.T) {
		w := doJSON(t, r, http.MethodDelete, base+"/5", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = doJSON(t, r, http.MethodDelete, base+"/5", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("EndedRoomRejectsJoin", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/rooms/%d/end", roomID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, r, http.MethodPost, base, gin.H{"userId": 9, "role": "listener"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
