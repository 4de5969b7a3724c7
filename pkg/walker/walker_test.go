package walker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glorpus-work/opendata/pkg/clock"
	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/walker"
	mocks "github.com/glorpus-work/opendata/pkg/walker/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const base = "/eos/opendata/cms/Run2010B"

func tree(lister *mocks.MockLister) {
	lister.EXPECT().List(gomock.Any(), base).Return([]walker.Entry{
		{Path: base + "/AOD", IsDir: true},
		{Path: base + "/README.txt"},
		{Path: base + "/RECO", IsDir: true},
	}, nil).AnyTimes()
	lister.EXPECT().List(gomock.Any(), base+"/AOD").Return([]walker.Entry{
		{Path: base + "/AOD/Apr21", IsDir: true},
		{Path: base + "/AOD/index.txt"},
	}, nil).AnyTimes()
	lister.EXPECT().List(gomock.Any(), base+"/AOD/Apr21").Return([]walker.Entry{
		{Path: base + "/AOD/Apr21/0001.root"},
		{Path: base + "/AOD/Apr21/0002.root"},
	}, nil).AnyTimes()
	lister.EXPECT().List(gomock.Any(), base+"/RECO").Return([]walker.Entry{
		{Path: base + "/RECO/0003.root"},
	}, nil).AnyTimes()
}

func TestList_NonRecursive(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockLister(ctrl)
	tree(lister)

	w := &walker.Walker{Lister: lister, Clock: clock.Fake(time.Unix(0, 0))}
	got, err := w.List(context.Background(), base, false, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"AOD", "README.txt", "RECO"}, got)
}

func TestList_Recursive(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockLister(ctrl)
	tree(lister)

	w := &walker.Walker{Lister: lister, Clock: clock.Fake(time.Unix(0, 0))}
	got, err := w.List(context.Background(), base, true, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{
		base + "/README.txt",
		base + "/AOD/index.txt",
		base + "/AOD/Apr21/0001.root",
		base + "/AOD/Apr21/0002.root",
		base + "/RECO/0003.root",
	}, got)
}

func TestList_RecursiveTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockLister(ctrl)
	tree(lister)

	clk := clock.Fake(time.Unix(0, 0))
	clk.Step = 2 * time.Second
	w := &walker.Walker{Lister: lister, Clock: clk}

	_, err := w.List(context.Background(), base, true, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrWalkTimeout)
	assert.Equal(t, errutils.ExitUsage, errutils.ExitCode(err))

	clk.Step = 0
	_, err = w.List(context.Background(), base, true, 0)
	require.NoError(t, err, "zero timeout disables the limit")
}

func TestList_DirectoryNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockLister(ctrl)
	notFound := errutils.Wrap(errutils.ErrDirectoryNotFound, "/eos/opendata/foobar")
	lister.EXPECT().List(gomock.Any(), "/eos/opendata/foobar").Return(nil, notFound).Times(2)

	w := &walker.Walker{Lister: lister, Clock: clock.Fake(time.Unix(0, 0))}
	for _, recursive := range []bool{false, true} {
		_, err := w.List(context.Background(), "/eos/opendata/foobar", recursive, time.Minute)
		require.Error(t, err)
		assert.ErrorIs(t, err, errutils.ErrDirectoryNotFound)
		assert.NotErrorIs(t, err, errutils.ErrWalkTimeout)
		assert.Equal(t, errutils.ExitFailure, errutils.ExitCode(err))
	}
}

func TestXRDFSLister(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("" +
			"dr-x 2020-06-02 09:41:35        4096 /eos/opendata/cms/Run2010B/AOD\n" +
			"-r-- 2020-06-02 09:41:35     1234567 /eos/opendata/cms/Run2010B/README.txt\n" +
			"\n"), nil
	}

	l := walker.NewXRDFSLister(run)
	entries, err := l.List(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, []string{"xrdfs", "root://eospublic.cern.ch", "ls", "-l", base}, gotArgs)
	assert.Equal(t, []walker.Entry{
		{Path: base + "/AOD", IsDir: true},
		{Path: base + "/README.txt"},
	}, entries)
}

func TestXRDFSLister_Error(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("[ERROR] Server responded with an error: [3011] No such file or directory"), errors.New("exit status 54")
	}
	_, err := walker.NewXRDFSLister(run).List(context.Background(), "/eos/opendata/foobar")
	require.Error(t, err)
	assert.ErrorIs(t, err, errutils.ErrDirectoryNotFound)
	assert.Contains(t, err.Error(), "/eos/opendata/foobar")
}
