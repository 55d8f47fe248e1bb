package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/connectapp/apiserver/config"
	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/internal/store"
	"github.com/connectapp/apiserver/types"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	cfg := config.Defaults()
	cfg.Database.Path = filepath.Join(t.TempDir(), "test.sqlite")

	require.NoError(t, db.Migrate(ctx, cfg))
	conn, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func createUser(t *testing.T, repo *store.UserRepository, name, email string) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hashed",
		JobTitle:     types.DefaultJobTitle,
	})
	require.NoError(t, err, email)
	return user
}

func createPost(t *testing.T, repo *store.PostRepository, userID int64, content string) types.Post {
	t.Helper()
	post, err := repo.Create(context.Background(), types.Post{UserID: userID, Content: content})
	require.NoError(t, err)
	return post
}

func TestUserRepository_CreateAndGetByEmail(t *testing.T) {
	conn := newTestDB(t)
	repo := store.NewUserRepository(conn)
	ctx := context.Background()

	user := createUser(t, repo, "Ann", "ann@x.io")
	require.NotZero(t, user.ID)

	got, err := repo.GetByEmail(ctx, "ann@x.io")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, "Ann", got.Name)
	require.Equal(t, "hashed", got.PasswordHash)
	require.Equal(t, types.DefaultJobTitle, got.JobTitle)

	_, err = repo.GetByEmail(ctx, "nobody@x.io")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	conn := newTestDB(t)
	repo := store.NewUserRepository(conn)

	createUser(t, repo, "Ann", "ann@x.io")
	_, err := repo.Create(context.Background(), types.User{Name: "Other", Email: "ann@x.io", PasswordHash: "h"})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestPostRepository_ListFeed(t *testing.T) {
	conn := newTestDB(t)
	users := store.NewUserRepository(conn)
	posts := store.NewPostRepository(conn)
	likes := store.NewLikeRepository(conn)
	ctx := context.Background()

	empty, err := posts.ListFeed(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	ann := createUser(t, users, "Ann", "ann@x.io")
	bob := createUser(t, users, "Bob", "bob@x.io")
	first := createPost(t, posts, ann.ID, "first")
	second := createPost(t, posts, bob.ID, "second")

	_, err = likes.Toggle(ctx, first.ID, bob.ID)
	require.NoError(t, err)
	_, err = likes.Toggle(ctx, first.ID, ann.ID)
	require.NoError(t, err)

	feed, err := posts.ListFeed(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.Equal(t, second.ID, feed[0].ID, "newest first")
	require.Equal(t, first.ID, feed[1].ID)

	require.Equal(t, "Ann", feed[1].UserName)
	require.Equal(t, types.DefaultJobTitle, feed[1].JobTitle)
	require.Equal(t, 2, feed[1].LikeCount)
	require.True(t, feed[1].IsLiked)
	require.Zero(t, feed[0].LikeCount)
	require.False(t, feed[0].IsLiked)
	require.False(t, feed[1].CreatedAt.IsZero())

	anonymous, err := posts.ListFeed(ctx, 0)
	require.NoError(t, err)
	for _, post := range anonymous {
		require.False(t, post.IsLiked, "anonymous viewer likes nothing")
	}
}

func TestPostRepository_DeleteOwned(t *testing.T) {
	conn := newTestDB(t)
	users := store.NewUserRepository(conn)
	posts := store.NewPostRepository(conn)
	likes := store.NewLikeRepository(conn)
	ctx := context.Background()

	ann := createUser(t, users, "Ann", "ann@x.io")
	bob := createUser(t, users, "Bob", "bob@x.io")
	post := createPost(t, posts, ann.ID, "mine")
	_, err := likes.Toggle(ctx, post.ID, bob.ID)
	require.NoError(t, err)

	require.ErrorIs(t, posts.DeleteOwned(ctx, post.ID, bob.ID), store.ErrNotFound)
	require.NoError(t, posts.DeleteOwned(ctx, post.ID, ann.ID))
	require.ErrorIs(t, posts.DeleteOwned(ctx, post.ID, ann.ID), store.ErrNotFound)

	var remaining int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM post_likes WHERE post_id = ?`, post.ID).Scan(&remaining))
	require.Zero(t, remaining, "likes cascade with the post")
}

func TestLikeRepository_Toggle(t *testing.T) {
	conn := newTestDB(t)
	users := store.NewUserRepository(conn)
	posts := store.NewPostRepository(conn)
	likes := store.NewLikeRepository(conn)
	ctx := context.Background()

	ann := createUser(t, users, "Ann", "ann@x.io")
	post := createPost(t, posts, ann.ID, "hello")

	for i, want := range []bool{true, false, true} {
		liked, err := likes.Toggle(ctx, post.ID, ann.ID)
		require.NoError(t, err, "toggle %d", i)
		require.Equal(t, want, liked, "toggle %d", i)
	}

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM post_likes`).Scan(&count))
	require.Equal(t, 1, count)

	_, err := likes.Toggle(ctx, 9999, ann.ID)
	require.Error(t, err, "liking a missing post")
}

func TestSnapshotRepository_Snapshot(t *testing.T) {
	conn := newTestDB(t)
	users := store.NewUserRepository(conn)
	posts := store.NewPostRepository(conn)
	likes := store.NewLikeRepository(conn)
	ctx := context.Background()

	ann := createUser(t, users, "Ann", "ann@x.io")
	post := createPost(t, posts, ann.ID, "hello")
	_, err := likes.Toggle(ctx, post.ID, ann.ID)
	require.NoError(t, err)

	snapshot, err := store.NewSnapshotRepository(conn).Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Users, 1)
	require.Len(t, snapshot.Posts, 1)
	require.Len(t, snapshot.Likes, 1)
	require.Empty(t, snapshot.Users[0].PasswordHash, "snapshots never carry digests")
	require.Equal(t, types.Like{UserID: ann.ID, PostID: post.ID}, snapshot.Likes[0])
}
