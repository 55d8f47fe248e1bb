package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/connectapp/apiserver/internal/metrics"
	"github.com/connectapp/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

const (
	maxBodyBytes = 1 << 20

	actionSignup     = "signup"
	actionLogin      = "login"
	actionCreatePost = "createPost"
	actionGetPosts   = "getPosts"
	actionToggleLike = "toggleLike"
	actionDeletePost = "deletePost"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnknownAction    = errors.New("unknown action")
	ErrUnauthorized     = errors.New("authentication required")
)

const (
	msgInvalidAction  = "Invalid action specified."
	msgUnknownAction  = "Unknown action."
	msgInvalidPayload = "Invalid request payload."
	msgDatabaseDown   = "Database connection failed."
	msgUnauthorized   = "Authentication required."
	msgDuplicateEmail = "This email is already registered."
	msgBadCredentials = "Invalid email or password."
	msgCannotDelete   = "You cannot delete this post (or it does not exist)."
	msgRegistered     = "User registered successfully."
	msgLoggedIn       = "Login successful."
	msgPostCreated    = "Post created successfully."
	msgPostLiked      = "Post liked."
	msgPostUnliked    = "Post unliked."
	msgPostDeleted    = "Post deleted successfully."
)

// failureMessages holds the per-action text for validation and storage
// failures.
var failureMessages = map[string]struct{ validation, storage string }{
	actionSignup:     {"All fields are required.", "Signup failed due to a database error."},
	actionLogin:      {"Email and password are required.", "Login failed due to a database error."},
	actionCreatePost: {"User ID and content are required.", "Post creation failed."},
	actionGetPosts:   {"Failed to fetch posts.", "Failed to fetch posts."},
	actionToggleLike: {"Post ID and User ID are required.", "Like action failed."},
	actionDeletePost: {"Post ID and User ID are required.", "Deletion failed due to a database error."},
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type actionFunc func(r *http.Request, body []byte) (any, error)

// ActionHandler dispatches the single-endpoint JSON API by its action field.
type ActionHandler struct {
	accounts     *services.AccountService
	content      *services.ContentService
	engagement   *services.EngagementService
	pinger       Pinger
	tokens       *TokenIssuer
	requireToken bool
	actions      map[string]actionFunc
}

// ActionOptions configures the optional bearer-token layer.
type ActionOptions struct {
	Tokens       *TokenIssuer
	RequireToken bool
}

// NewActionHandler constructs the dispatcher with its services.
func NewActionHandler(
	accounts *services.AccountService,
	content *services.ContentService,
	engagement *services.EngagementService,
	pinger Pinger,
	opts ActionOptions,
) *ActionHandler {
	h := &ActionHandler{
		accounts:     accounts,
		content:      content,
		engagement:   engagement,
		pinger:       pinger,
		tokens:       opts.Tokens,
		requireToken: opts.RequireToken && opts.Tokens != nil,
	}
	h.actions = map[string]actionFunc{
		actionSignup:     h.signup,
		actionLogin:      h.login,
		actionCreatePost: h.createPost,
		actionGetPosts:   h.getPosts,
		actionToggleLike: h.toggleLike,
		actionDeletePost: h.deletePost,
	}
	return h
}

// ActionRouter registers the API endpoint on the given router.
func ActionRouter(r chi.Router, handler *ActionHandler) {
	if handler.tokens != nil {
		r = r.With(handler.tokens.WithTokenSubject)
	}
	r.Post("/", handler.ServeHTTP)
	r.Get("/", handler.ServeHTTP)
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.PingContext(r.Context()); err != nil {
		requestLogger(r).WithError(err).Error("database ping failed")
		writeFailure(w, http.StatusInternalServerError, msgDatabaseDown)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidAction)
		return
	}

	action, handle, err := h.resolve(body)
	switch {
	case errors.Is(err, ErrUnknownAction):
		metrics.ActionsTotal.WithLabelValues("unknown", "unknown_action").Inc()
		writeFailure(w, http.StatusBadRequest, msgUnknownAction)
		return
	case err != nil:
		writeFailure(w, http.StatusBadRequest, msgInvalidAction)
		return
	}

	result, err := handle(r, body)
	if err != nil {
		status, message, outcome := h.classify(action, err)
		metrics.ActionsTotal.WithLabelValues(action, outcome).Inc()
		if outcome == "error" {
			requestLogger(r).WithError(err).WithField("action", action).Error("action failed")
		}
		writeFailure(w, status, message)
		return
	}

	metrics.ActionsTotal.WithLabelValues(action, "success").Inc()
	writeJSON(w, http.StatusOK, result)
}

// resolve reads the action discriminator and looks up its handler. Actions
// match exactly; an empty string is an unknown action.
func (h *ActionHandler) resolve(body []byte) (string, actionFunc, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil, ErrMalformedRequest
	}
	var header actionHeader
	if err := json.Unmarshal(body, &header); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if header.Action == nil {
		return "", nil, ErrMalformedRequest
	}
	action := *header.Action
	handle, ok := h.actions[action]
	if !ok {
		return action, nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return action, handle, nil
}

func decodePayload(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return nil
}

// classify maps an action error to its HTTP status, client message and
// metrics outcome. Service failures keep HTTP 200.
func (h *ActionHandler) classify(action string, err error) (int, string, string) {
	messages := failureMessages[action]
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest, msgInvalidPayload, "malformed"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrValidation):
		return http.StatusOK, messages.validation, "validation"
	case errors.Is(err, services.ErrDuplicateEmail):
		return http.StatusOK, msgDuplicateEmail, "conflict"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusOK, msgBadCredentials, "invalid_credentials"
	case errors.Is(err, services.ErrForbiddenOrNotFound):
		return http.StatusOK, msgCannotDelete, "forbidden"
	default:
		return http.StatusOK, messages.storage, "error"
	}
}

// actorID resolves the acting user. With tokens required the bearer subject
// wins over the body-supplied id.
func (h *ActionHandler) actorID(r *http.Request, bodyID ID) (int64, error) {
	if !h.requireToken {
		return bodyID.Int64(), nil
	}
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		return 0, ErrUnauthorized
	}
	return userID, nil
}

func (h *ActionHandler) signup(r *http.Request, body []byte) (any, error) {
	var req SignupRequest
	if err := decodePayload(body, &req); err != nil {
		return nil, err
	}

	_, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		JobTitle: req.JobTitle,
	})
	if err != nil {
		return nil, err
	}
	return Envelope{Success: true, Message: msgRegistered}, nil
}

func (h *ActionHandler) login(r *http.Request, body []byte) (any, error) {
	var req LoginRequest
	if err := decodePayload(body, &req); err != nil {
		return nil, err
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	resp := LoginResponse{
		Envelope: Envelope{Success: true, Message: msgLoggedIn},
		User:     user,
	}
	if h.tokens != nil {
		token, err := h.tokens.Issue(user.ID)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		resp.Token = token
	}
	return resp, nil
}

func (h *ActionHandler) createPost(r *http.Request, body []byte) (any, error) {
	var req CreatePostRequest
	if err := decodePayload(body, &req); err != nil {
		return nil, err
	}
	userID, err := h.actorID(r, req.UserID)
	if err != nil {
		return nil, err
	}

	if _, err := h.content.CreatePost(r.Context(), userID, req.Content); err != nil {
		return nil, err
	}
	return Envelope{Success: true, Message: msgPostCreated}, nil
}

func (h *ActionHandler) getPosts(r *http.Request, body []byte) (any, error) {
	var req GetPostsRequest
	if err := decodePayload(body, &req); err != nil {
		return nil, err
	}

	viewerID := req.CurrentUserID.Int64()
	if subject, err := userIDFromContext(r.Context()); err == nil {
		viewerID = subject
	} else if h.requireToken {
		viewerID = 0
	}

	posts, err := h.content.ListPosts(r.Context(), viewerID)
	if err != nil {
		return nil, err
	}
	return PostsResponse{Envelope: Envelope{Success: true}, Posts: posts}, nil
}

func (h *ActionHandler) toggleLike(r *http.Request, body []byte) (any, error) {
	var req ToggleLikeRequest
	if err := decodePayload(body, &req); err != nil {
		return nil, err
	}
	userID, err := h.actorID(r, req.UserID)
	if err != nil {
		return nil, err
	}

	liked, err := h.engagement.ToggleLike(r.Context(), req.PostID.Int64(), userID)
	if err != nil {
		return nil, err
	}
	message := msgPostUnliked
	if liked {
		message = msgPostLiked
	}
	return ToggleLikeResponse{Envelope: Envelope{Success: true, Message: message}, IsLiked: liked}, nil
}

func (h *ActionHandler) deletePost(r *http.Request, body []byte) (any, error) {
	var req DeletePostRequest
	if err := decodePayload(body, &req); err != nil {
		return nil, err
	}
	userID, err := h.actorID(r, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := h.content.DeletePost(r.Context(), req.PostID.Int64(), userID); err != nil {
		return nil, err
	}
	return Envelope{Success: true, Message: msgPostDeleted}, nil
}

// Healthz reports whether the store answers a ping.
func Healthz(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pinger.PingContext(r.Context()); err != nil {
			log.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
