package filesys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"
)

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

type PackCloseTestSuite struct {
	suite.Suite
}

func (s *PackCloseTestSuite) TestCloseReportsEveryFailure() {
	errA := errors.New("close a")
	errB := errors.New("close b")
	calls := 0

	p := NewPackFS()
	p.closers = append(p.closers,
		closeFunc(func() error { calls++; return errA }),
		closeFunc(func() error { calls++; return nil }),
		closeFunc(func() error { calls++; return errB }),
	)
	p.mounted.Store(true)

	err := p.Close()
	s.Equal(3, calls)
	s.ErrorIs(err, errA)
	s.ErrorIs(err, errB)
	s.Len(multierr.Errors(err), 2)
	s.False(p.Mounted())
	s.NoError(p.Close())
}

func TestPackCloseSuite(t *testing.T) {
	suite.Run(t, new(PackCloseTestSuite))
}
