package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"landledger/internal/profile/service"
	"landledger/internal/profile/store"
	"landledger/pkg/domain"
	"landledger/pkg/testutil"
)

const (
	adminAddr = "0x00000000000000000000000000000000000000ad"
	aliceAddr = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bobAddr   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type ProfileHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestProfileHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProfileHandlerSuite))
}

func (s *ProfileHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), logger)

	s.router = chi.NewRouter()
	New(svc, domain.Address(adminAddr), logger).Register(s.router)
}

func (s *ProfileHandlerSuite) submit(caller string) {
	s.T().Helper()
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/profiles", map[string]string{
		"full_name":   "Asha Rao",
		"national_id": "123456789012",
		"phone":       "9876543210",
		"residence":   "14 Temple Street",
	})
	rr := testutil.DoRequest(s.router, testutil.WithCaller(req, caller))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *ProfileHandlerSuite) TestSubmit() {
	s.Run("stores the caller's profile", func() {
		s.submit(aliceAddr)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/profiles/"+aliceAddr)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, aliceAddr))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "full_name", "Asha Rao")
	})

	s.Run("invalid national id is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/profiles", map[string]string{
			"full_name":   "Asha Rao",
			"national_id": "1234",
			"phone":       "9876543210",
			"residence":   "14 Temple Street",
		})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, aliceAddr))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

func (s *ProfileHandlerSuite) TestGetAuthorization() {
	s.submit(aliceAddr)

	s.Run("owner reads their own profile", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/profiles/"+aliceAddr)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, aliceAddr))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("the admin reads any profile", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/profiles/"+aliceAddr)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, adminAddr))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("other callers are forbidden", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/profiles/"+aliceAddr)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, bobAddr))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("missing profile is not found for its owner", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/profiles/"+bobAddr)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, bobAddr))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}
