//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/connectapp/apiserver/config"
	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/internal/server"
	"github.com/connectapp/apiserver/types"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d/api", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d", "postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	cfg, err := testConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := waitForPostgres(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}
	go func() {
		_ = srv.Start()
	}()

	if err := waitForHealth(ctx, fmt.Sprintf("http://localhost:%d/healthz", serverPort)); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	IsLiked *bool  `json:"isLiked"`
	User    struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		JobTitle string `json:"job_title"`
	} `json:"user"`
	Posts []struct {
		ID        int64  `json:"id"`
		UserID    int64  `json:"user_id"`
		Content   string `json:"content"`
		UserName  string `json:"user_name"`
		LikeCount int    `json:"like_count"`
		IsLiked   bool   `json:"is_liked"`
	} `json:"posts"`
}

func TestPostLifecycle(t *testing.T) {
	email := fmt.Sprintf("ann_%d@x.io", time.Now().UnixNano())

	resp, status := call(t, "", map[string]any{
		"action": "signup", "name": "Ann", "email": email, "password": "pw1",
	})
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("signup failed: %d %+v", status, resp)
	}

	resp, _ = call(t, "", map[string]any{"action": "login", "email": email, "password": "pw1"})
	if !resp.Success || resp.Token == "" {
		t.Fatalf("login failed: %+v", resp)
	}
	token := resp.Token
	userID := resp.User.ID
	if resp.User.JobTitle != types.DefaultJobTitle {
		t.Fatalf("unexpected job title: %q", resp.User.JobTitle)
	}

	_, status = call(t, "", map[string]any{"action": "createPost", "userId": userID, "content": "hi"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	resp, _ = call(t, token, map[string]any{"action": "createPost", "content": "hello e2e"})
	if !resp.Success {
		t.Fatalf("create post failed: %+v", resp)
	}

	postID := findPost(t, token, "hello e2e")

	resp, _ = call(t, token, map[string]any{"action": "toggleLike", "postId": postID})
	if !resp.Success || resp.IsLiked == nil || !*resp.IsLiked {
		t.Fatalf("expected liked: %+v", resp)
	}
	resp, _ = call(t, token, map[string]any{"action": "toggleLike", "postId": postID})
	if !resp.Success || resp.IsLiked == nil || *resp.IsLiked {
		t.Fatalf("expected unliked: %+v", resp)
	}

	resp, _ = call(t, token, map[string]any{"action": "deletePost", "postId": postID})
	if !resp.Success || resp.Message != "Post deleted successfully." {
		t.Fatalf("delete failed: %+v", resp)
	}

	resp, _ = call(t, token, map[string]any{"action": "deletePost", "postId": postID})
	if resp.Success {
		t.Fatalf("expected second delete to fail: %+v", resp)
	}
}

func findPost(t *testing.T, token, content string) int64 {
	t.Helper()
	resp, _ := call(t, token, map[string]any{"action": "getPosts"})
	if !resp.Success {
		t.Fatalf("get posts failed: %+v", resp)
	}
	for _, post := range resp.Posts {
		if post.Content == content {
			return post.ID
		}
	}
	t.Fatalf("post %q not in feed", content)
	return 0
}

func call(t *testing.T, token string, payload map[string]any) (apiResponse, int) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, baseURL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded, resp.StatusCode
}

func testConfig() (config.Config, error) {
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_DRIVER", "postgres")
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "connectapp")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "connectapp_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("AUTH_REQUIRE_TOKEN", "true")
	_ = os.Setenv("BCRYPT_COST", "4")
	return config.LoadConfig()
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		conn, err := db.Open(ctx, cfg)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
