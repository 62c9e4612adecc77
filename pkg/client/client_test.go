package client_test

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/projset/internal/discovery"
	"github.com/lc/projset/internal/filesys"
	"github.com/lc/projset/internal/platform"
	"github.com/lc/projset/internal/settings"
	"github.com/lc/projset/internal/socket"
	"github.com/lc/projset/internal/variant"
	"github.com/lc/projset/pkg/api"
	"github.com/lc/projset/pkg/client"
)

type ClientTestSuite struct {
	suite.Suite
	ts *httptest.Server
	c  *client.Client
}

func (s *ClientTestSuite) SetupTest() {
	fsys := filesys.FromFS(fstest.MapFS{
		"proj/project.cfg":  {Data: []byte("[application]\nconfig/name=\"Remote\"\n")},
		"proj/override.cfg": {Data: []byte("[display]\nwindow/size/viewport_width=640\n")},
	})
	s.ts = httptest.NewServer(api.New("/proj", fsys).Handler())
	s.c = client.NewWithHTTP(s.ts.Client(), s.ts.URL)
}

func (s *ClientTestSuite) TearDownTest() { s.ts.Close() }

func (s *ClientTestSuite) TestOpenAndStat() {
	ctx := context.Background()
	rc, err := s.c.Open(ctx, "project.cfg")
	s.Require().NoError(err)
	data, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Require().NoError(rc.Close())
	s.Contains(string(data), "Remote")

	st, err := s.c.Stat(ctx, "override.cfg")
	s.Require().NoError(err)
	s.Equal("override.cfg", st.Name)

	_, err = s.c.Open(ctx, "missing.cfg")
	s.True(filesys.IsNotExist(err))
	_, err = s.c.Stat(ctx, "missing.cfg")
	s.True(filesys.IsNotExist(err))

	_, err = s.c.Open(ctx, "../etc/passwd")
	s.ErrorContains(err, "400")
}

func (s *ClientTestSuite) TestFS() {
	fsys := s.c.FS(context.Background())
	fi, err := fsys.Stat("project.cfg")
	s.Require().NoError(err)
	s.Equal("project.cfg", fi.Name())
	s.False(fi.IsDir())
	s.True(filesys.Exists(fsys, "override.cfg"))
	s.False(filesys.Exists(fsys, "nope"))
}

func (s *ClientTestSuite) TestStatus() {
	st, err := s.c.Status(context.Background())
	s.Require().NoError(err)
	s.Equal("/proj", st.Root)
}

func (s *ClientTestSuite) TestRemoteDiscovery() {
	plat := &platform.Profile{}
	reg := settings.New(plat)
	e := discovery.New(reg, plat, discovery.WithRemote(s.c.FS(context.Background())))
	s.Require().NoError(e.Setup(discovery.SetupOptions{}))

	name, err := reg.Get("application/config/name")
	s.Require().NoError(err)
	s.Equal(variant.String("Remote"), name)
	width, err := reg.Get("display/window/size/viewport_width")
	s.Require().NoError(err)
	s.Equal(variant.Int(640), width)
}

func (s *ClientTestSuite) TestOverUnixSocket() {
	dir, err := os.MkdirTemp("", "projset")
	s.Require().NoError(err)
	defer os.RemoveAll(dir)

	sockPath := filepath.Join(dir, "d.sock")
	ln, err := socket.Listen(sockPath)
	s.Require().NoError(err)

	srv := api.New("/proj", filesys.FromFS(fstest.MapFS{"proj/project.cfg": {Data: []byte("a=1\n")}}))
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := client.New(sockPath).Status(ctx)
	s.Require().NoError(err)
	s.Equal("/proj", st.Root)

	s.Require().NoError(srv.Shutdown(ctx))
	s.NoError(<-done)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
