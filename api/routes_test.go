package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SlpAus/campus-election-backend/internal/audit"
	"github.com/SlpAus/campus-election-backend/internal/ballot"
	"github.com/SlpAus/campus-election-backend/internal/candidate"
	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/SlpAus/campus-election-backend/internal/idcheck"
	"github.com/SlpAus/campus-election-backend/internal/media"
	"github.com/SlpAus/campus-election-backend/internal/platform/config"
	"github.com/SlpAus/campus-election-backend/internal/student"
	"github.com/SlpAus/campus-election-backend/internal/testutil"
	"github.com/SlpAus/campus-election-backend/internal/voter"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticText string

func (s staticText) ExtractText(context.Context, []byte) (string, error) { return string(s), nil }

func newServer(t *testing.T, storeUp *bool) *gin.Engine {
	_, rdb := testutil.NewRedis(t)
	events := audit.NewLog(testutil.NewSQLite(t))
	require.NoError(t, events.Migrate())

	registry := code.NewRegistry(rdb, []string{"abc123"})
	_, err := registry.Seed(context.Background())
	require.NoError(t, err)

	h := Handlers{
		Ballot:    ballot.NewHandler(ballot.NewService(rdb, registry), registry, events),
		Voter:     voter.NewHandler(voter.NewService(rdb, registry), events),
		Student:   student.NewHandler(student.NewRepository(rdb)),
		Candidate: candidate.NewHandler(candidate.NewRepository(rdb)),
		Media:     media.NewHandler(media.NewSupabaseStore(config.StorageConfig{URL: "http://127.0.0.1:1", Bucket: "b"})),
		IDCheck:   idcheck.NewHandler(idcheck.NewVerifier(staticText("MEDINA COLLEGE"), []string{"MEDINA"})),
		Audit:     audit.NewHandler(events),
	}
	if storeUp != nil {
		h.RequireStore = func(c *gin.Context) {
			if !*storeUp {
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
			c.Next()
		}
	}

	r := testutil.NewRouter()
	r.Use(LimitBody(1 << 10))
	SetupRoutes(r, h)
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBanner(t *testing.T) {
	r := newServer(t, nil)
	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Voting Server is LIVE", w.Body.String())
}

func TestVotingFlowThroughRoutes(t *testing.T) {
	r := newServer(t, nil)

	w := do(r, http.MethodPost, "/check-code", gin.H{"code": "abc123"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/vote", gin.H{
		"studentID": "S1", "name": "Ana", "code": "abc123",
		"votes": gin.H{"President": "Alice"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		VotesCount map[string]int `json:"votesCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, map[string]int{"President_Alice": 1}, res.VotesCount)

	w = do(r, http.MethodPost, "/auth/login", gin.H{"studentID": "S1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alreadyVoted":true`)

	w = do(r, http.MethodDelete, "/vote-record/S1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/audit?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(audit.KindBallotRemoved))
}

func TestStoreGuardOnlyCoversVotingRoutes(t *testing.T) {
	up := false
	r := newServer(t, &up)

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/reset-votes", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/check-code", gin.H{"code": "abc123"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/results", nil).Code)

	up = true
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/reset-votes", nil).Code)
}

func TestLimitBodyRejectsLargePayload(t *testing.T) {
	r := newServer(t, nil)
	w := do(r, http.MethodPost, "/students", gin.H{"id": "S1", "name": strings.Repeat("x", 2<<10)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentAndCandidateRoutes(t *testing.T) {
	r := newServer(t, nil)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/students", gin.H{"id": "S1", "name": "Ana"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/students/S1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/students/S2", nil).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/candidates", gin.H{"name": "Alice", "position": "President"}).Code)
	w := do(r, http.MethodGet, "/candidates", nil)
	assert.Contains(t, w.Body.String(), "Alice")
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/candidates/0", nil).Code)
}
