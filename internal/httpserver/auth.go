package httpserver

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/service/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateTTL = 10 * time.Minute

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type sessionResponse struct {
	Customer *domain.Customer `json:"customer"`
	session.Tokens
}

// oauthState is what the start step remembers for the callback.
type oauthState struct {
	Provider string `json:"provider"`
	GuestID  string `json:"guestId,omitempty"`
}

func (h *handlers) issueGuest(c *gin.Context) {
	token, guestID, err := h.deps.SessionSvc.IssueGuest(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"guestToken": token, "guestId": guestID})
}

func (h *handlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cust, err := h.deps.SessionSvc.Signup(c.Request.Context(), session.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, cust)
}

func (h *handlers) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cust, tokens, err := h.deps.SessionSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.signedIn(c, cust, identityFrom(c).GuestID)
	respond(c, http.StatusOK, sessionResponse{Customer: cust, Tokens: tokens})
}

// signedIn runs the guest to customer transition for a request that just
// authenticated.
func (h *handlers) signedIn(c *gin.Context, cust *domain.Customer, guestID string) {
	if guestID == "" {
		return
	}
	id := domain.Identity{CustomerID: cust.ID, GuestID: guestID}
	runTransition(c, h.logger, h.deps, id)
	c.Set(identityKey, id)
}

func (h *handlers) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := h.deps.SessionSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, tokens)
}

func (h *handlers) logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		respondError(c, http.StatusUnauthorized, "SIGN_IN_REQUIRED", "sign in required")
		return
	}
	if err := h.deps.SessionSvc.Logout(c.Request.Context(), token); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) requestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.deps.SessionSvc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *handlers) confirmPasswordReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.deps.SessionSvc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) oauthStart(c *gin.Context) {
	if h.deps.Store == nil {
		writeError(c, h.logger, session.ErrUnknownProvider)
		return
	}
	provider := c.Param("provider")
	state := uuid.NewString()
	url, err := h.deps.SessionSvc.AuthURL(provider, state)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	rec := oauthState{Provider: provider, GuestID: identityFrom(c).GuestID}
	if err := h.deps.Store.Set(c.Request.Context(), localstore.OAuthStateKey(state), rec, oauthStateTTL); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *handlers) oauthCallback(c *gin.Context) {
	ctx := c.Request.Context()
	provider := c.Param("provider")
	state := strings.TrimSpace(c.Query("state"))
	code := strings.TrimSpace(c.Query("code"))
	if state == "" || code == "" || h.deps.Store == nil {
		writeError(c, h.logger, session.ErrInvalidToken)
		return
	}

	var rec oauthState
	ok, err := h.deps.Store.Get(ctx, localstore.OAuthStateKey(state), &rec)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !ok || rec.Provider != provider {
		writeError(c, h.logger, session.ErrInvalidToken)
		return
	}
	if err := h.deps.Store.Delete(ctx, localstore.OAuthStateKey(state)); err != nil {
		h.logger.Printf("http: oauth state delete error=%v", err)
	}

	cust, tokens, err := h.deps.SessionSvc.CompleteOAuth(ctx, provider, code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	guestID := rec.GuestID
	if guestID == "" {
		guestID = identityFrom(c).GuestID
	}
	h.signedIn(c, cust, guestID)
	respond(c, http.StatusOK, sessionResponse{Customer: cust, Tokens: tokens})
}
