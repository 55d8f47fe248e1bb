package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/connectapp/apiserver/internal/services"
	"github.com/connectapp/apiserver/types"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	snapshot types.Snapshot
	err      error
}

func (f fakeSnapshots) Snapshot(context.Context) (types.Snapshot, error) {
	return f.snapshot, f.err
}

type fakeUploader struct {
	ensured     bool
	key         string
	contentType string
	body        []byte
	putErr      error
}

func (f *fakeUploader) EnsureBucket(context.Context) error {
	f.ensured = true
	return nil
}

func (f *fakeUploader) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if int64(buf.Len()) != size {
		return errors.New("size mismatch")
	}
	f.key = key
	f.contentType = contentType
	f.body = buf.Bytes()
	return nil
}

func TestExportUploadsSnapshot(t *testing.T) {
	generatedAt := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	snapshot := types.Snapshot{
		GeneratedAt: generatedAt,
		Users:       []types.User{{ID: 1, Name: "Ann", Email: "ann@x.io", PasswordHash: "secret", JobTitle: types.DefaultJobTitle}},
		Posts:       []types.Post{{ID: 7, UserID: 1, Content: "hi", CreatedAt: generatedAt}},
		Likes:       []types.Like{{UserID: 1, PostID: 7}},
	}
	uploader := &fakeUploader{}
	exporter := services.NewExportService(fakeSnapshots{snapshot: snapshot}, uploader)

	key, err := exporter.Export(context.Background())
	require.NoError(t, err)
	require.True(t, uploader.ensured)
	require.Equal(t, key, uploader.key)
	require.True(t, strings.HasPrefix(key, "exports/20260301T123045Z-"), key)
	require.True(t, strings.HasSuffix(key, ".json"), key)
	require.Equal(t, "application/json", uploader.contentType)
	require.NotContains(t, string(uploader.body), "secret")

	var decoded types.Snapshot
	require.NoError(t, json.Unmarshal(uploader.body, &decoded))
	require.Len(t, decoded.Users, 1)
	require.Len(t, decoded.Posts, 1)
	require.Equal(t, snapshot.Likes, decoded.Likes)
}

func TestExportFailures(t *testing.T) {
	_, err := services.NewExportService(fakeSnapshots{err: errors.New("db gone")}, &fakeUploader{}).Export(context.Background())
	require.ErrorIs(t, err, services.ErrStorage)

	_, err = services.NewExportService(fakeSnapshots{}, &fakeUploader{putErr: errors.New("denied")}).Export(context.Background())
	require.Error(t, err)
}
