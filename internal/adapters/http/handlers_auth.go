package web

import (
	"errors"
	"net/http"

	"testinsure/internal/adapters/http/middleware"
	"testinsure/internal/adapters/logging"
	"testinsure/internal/application/orchestrators"
	"testinsure/internal/application/validation"
	"testinsure/internal/domain/account"
	"testinsure/internal/domain/notification"
	"testinsure/internal/domain/session"
)

type loginPage struct {
	Email string
}

type registerPage struct {
	Form   account.Registration
	Errors []string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", "Home", nil)
}

// handleLoginForm handles GET /login.
// POST: a signed-in browser is sent to its dashboard
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess != nil {
		redirect(w, r, session.HomePath(sess.Role))
		return
	}
	s.render(w, r, http.StatusOK, "login", "Login", loginPage{})
}

// handleLoginSubmit handles POST /login.
// PRE: form carries email and password
// POST: success persists the session and redirects to the role's dashboard;
// failure re-renders the form with an error notification
func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	email := r.FormValue("email")

	sess, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{
		ClientID: middleware.ClientIDFromContext(ctx),
		Email:    email,
		Password: r.FormValue("password"),
	}, orchestrators.LoginDeps{Auth: s.deps.API, Sessions: s.deps.Sessions})
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, orchestrators.ErrInvalidCredentials) {
			logging.FromContext(ctx).Error("login_error", "error", err.Error())
			status = http.StatusBadGateway
		}
		s.notify(r, notification.Error(orchestrators.ErrInvalidCredentials.Error()))
		s.render(w, r, status, "login", "Login", loginPage{Email: email})
		return
	}

	s.notify(r, notification.Success("Welcome back!"))
	redirect(w, r, session.HomePath(sess.Role))
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess != nil {
		redirect(w, r, session.HomePath(sess.Role))
		return
	}
	s.render(w, r, http.StatusOK, "register", "Register", registerPage{})
}

// handleRegisterSubmit handles POST /register.
// POST: success signs the new patient in; invalid input re-renders with field errors
func (s *Server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	reg := account.Registration{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Phone:    r.FormValue("phone"),
	}

	sess, err := orchestrators.ExecuteRegister(ctx, orchestrators.RegisterInput{
		ClientID:     middleware.ClientIDFromContext(ctx),
		Registration: reg,
	}, orchestrators.LoginDeps{Auth: s.deps.API, Sessions: s.deps.Sessions})
	if err != nil {
		reg.Password = ""
		page := registerPage{Form: reg}
		status := http.StatusUnprocessableEntity
		var ve *validation.Error
		switch {
		case errors.As(err, &ve):
			page.Errors = ve.Messages
		case errors.Is(err, orchestrators.ErrRegistrationFailed):
			s.notify(r, notification.Error(err.Error()))
		default:
			logging.FromContext(ctx).Error("register_error", "error", err.Error())
			s.notify(r, notification.Error(orchestrators.ErrRegistrationFailed.Error()))
			status = http.StatusBadGateway
		}
		s.render(w, r, status, "register", "Register", page)
		return
	}

	s.notify(r, notification.Success("Account Created!"))
	redirect(w, r, session.HomePath(sess.Role))
}

func (s *Server) handleLogoutConfirm(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess == nil {
		redirect(w, r, session.PathLogin)
		return
	}
	s.renderConfirm(w, r, confirmPage{
		Heading: "Logout",
		Message: "Are you sure you want to logout?",
		Action:  "/logout",
		Submit:  "Logout",
		Cancel:  session.HomePath(sess.Role),
	})
}

// handleLogout handles POST /logout.
// POST: session keys are removed and any booking draft is dropped; the theme is kept
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := middleware.ClientIDFromContext(ctx)
	if err := s.deps.Sessions.Logout(ctx, clientID); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.dropDraft(r, clientID)
	logging.FromContext(ctx).Info("auth_event", "event", "logout")
	redirect(w, r, session.PathLogin)
}

// handleThemeToggle handles POST /theme/toggle and returns to the page it came from.
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.deps.Themes.Toggle(ctx, middleware.ClientIDFromContext(ctx)); err != nil {
		logging.FromContext(ctx).Warn("theme_toggle_failed", "error", err.Error())
	}
	redirect(w, r, backPath(r, session.PathPublicHome))
}
