package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/walker"
	mock_walker "github.com/glorpus-work/opendata/pkg/walker/mocks"
)

// useLister points list-directory at l and an empty configuration for the test.
func useLister(t *testing.T, l walker.Lister) {
	t.Helper()
	oldLister, oldConfig := newLister, ConfigPath
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	ConfigPath = &cfgPath
	newLister = func() (walker.Lister, error) { return l, nil }
	t.Cleanup(func() {
		newLister, ConfigPath = oldLister, oldConfig
	})
}

func runList(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewListDirectoryCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListDirectory_Names(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mock_walker.NewMockLister(ctrl)
	lister.EXPECT().List(gomock.Any(), "/eos/opendata/cms").Return([]walker.Entry{
		{Path: "/eos/opendata/cms/Run2010B", IsDir: true},
		{Path: "/eos/opendata/cms/README.md"},
	}, nil)
	useLister(t, lister)

	out, err := runList("/eos/opendata/cms")
	require.NoError(t, err)
	assert.Equal(t, "Run2010B\nREADME.md\n", out)
}

func TestListDirectory_Recursive(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mock_walker.NewMockLister(ctrl)
	gomock.InOrder(
		lister.EXPECT().List(gomock.Any(), "/eos/a").Return([]walker.Entry{
			{Path: "/eos/a/sub", IsDir: true},
			{Path: "/eos/a/top.root"},
		}, nil),
		lister.EXPECT().List(gomock.Any(), "/eos/a/sub").Return([]walker.Entry{
			{Path: "/eos/a/sub/deep.root"},
		}, nil),
	)
	useLister(t, lister)

	out, err := runList("/eos/a", "--recursive")
	require.NoError(t, err)
	assert.Equal(t, "/eos/a/top.root\n/eos/a/sub/deep.root\n", out)
}

func TestListDirectory_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		lister := mock_walker.NewMockLister(ctrl)
		lister.EXPECT().List(gomock.Any(), "/eos/nope").
			Return(nil, fmt.Errorf("%w: /eos/nope", errutils.ErrDirectoryNotFound))
		useLister(t, lister)

		_, err := runList("/eos/nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, errutils.ErrDirectoryNotFound)
		assert.Equal(t, errutils.ExitFailure, errutils.ExitCode(err))
	})

	t.Run("empty directory", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		lister := mock_walker.NewMockLister(ctrl)
		lister.EXPECT().List(gomock.Any(), "/eos/empty").Return(nil, nil)
		useLister(t, lister)

		_, err := runList("/eos/empty")
		require.Error(t, err)
		assert.ErrorIs(t, err, errutils.ErrEmptyDirectory)
		assert.Equal(t, errutils.ExitUsage, errutils.ExitCode(err))
	})

	t.Run("invalid timeout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		useLister(t, mock_walker.NewMockLister(ctrl))

		_, err := runList("/eos/a", "--recursive", "--timeout", "0")
		require.Error(t, err)
		assert.Equal(t, errutils.ExitUsage, errutils.ExitCode(err))
	})
}
