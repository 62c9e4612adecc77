package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/suite"

	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/mocks"
	"github.com/lc/projset/pkg/api"
)

type APITestSuite struct {
	suite.Suite
	ts *httptest.Server
}

func (s *APITestSuite) SetupTest() {
	fsys := filesys.FromFS(fstest.MapFS{
		"proj/project.cfg":   {Data: []byte("config_version=5\n")},
		"proj/icons/a.png":   {Data: []byte("png")},
		"secret/private.key": {Data: []byte("k")},
	})
	s.ts = httptest.NewServer(api.New("/proj/", fsys).Handler())
}

func (s *APITestSuite) TearDownTest() { s.ts.Close() }

func (s *APITestSuite) get(p string, q url.Values) *http.Response {
	u := s.ts.URL + p
	if q != nil {
		u += "?" + q.Encode()
	}
	resp, err := http.Get(u)
	s.Require().NoError(err)
	s.T().Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *APITestSuite) TestFile() {
	resp := s.get(api.FilePath, url.Values{"path": {"project.cfg"}})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Header.Get(api.RequestIDHeader))
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal("config_version=5\n", string(body))

	resp = s.get(api.FilePath, url.Values{"path": {"res://icons/a.png"}})
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *APITestSuite) TestFileErrors() {
	testCases := []struct {
		name   string
		path   string
		status int
	}{
		{name: "missing", path: "nope.cfg", status: http.StatusNotFound},
		{name: "empty", path: "", status: http.StatusBadRequest},
		{name: "escape", path: "../secret/private.key", status: http.StatusBadRequest},
		{name: "nested escape", path: "icons/../../secret/private.key", status: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp := s.get(api.FilePath, url.Values{"path": {tc.path}})
			s.Equal(tc.status, resp.StatusCode)
			var body api.ErrorResponse
			s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
			s.NotEmpty(body.Error)
			s.Equal(resp.Header.Get(api.RequestIDHeader), body.RequestID)
		})
	}
}

func (s *APITestSuite) TestStat() {
	resp := s.get(api.StatPath, url.Values{"path": {"icons/a.png"}})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var st api.StatResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&st))
	s.Equal("a.png", st.Name)
	s.Equal(int64(3), st.Size)
	s.False(st.IsDir)
}

func (s *APITestSuite) TestStatus() {
	s.get(api.FilePath, url.Values{"path": {"project.cfg"}})
	resp := s.get(api.StatusPath, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var st api.StatusResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&st))
	s.Equal("/proj", st.Root)
	s.Equal(int64(2), st.Requests)
	s.NotEmpty(st.Version)
}

func (s *APITestSuite) TestReadFailure() {
	fsys := new(mocks.MockReadFS)
	fsys.On("Open", "/proj/project.cfg").Return(nil, errors.New("disk gone"))
	fsys.On("Stat", "/proj/project.cfg").Return(nil, errors.New("disk gone"))
	ts := httptest.NewServer(api.New("/proj", fsys).Handler())
	defer ts.Close()

	for _, p := range []string{api.FilePath, api.StatPath} {
		resp, err := http.Get(ts.URL + p + "?path=project.cfg")
		s.Require().NoError(err)
		var body api.ErrorResponse
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		s.Equal(http.StatusInternalServerError, resp.StatusCode, p)
		s.Equal("disk gone", body.Error)
	}
	fsys.AssertExpectations(s.T())
}

func (s *APITestSuite) TestMethodNotAllowed() {
	for _, p := range []string{api.FilePath, api.StatPath, api.StatusPath} {
		resp, err := http.Post(s.ts.URL+p, "text/plain", nil)
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusMethodNotAllowed, resp.StatusCode, p)
	}
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
