package web

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-foodscore/auth"
	"github.com/jrsteele09/go-foodscore/navigation"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusOK, s.newPage(r, "Home"))
	}
}

// LoginForm is echoed back into the login page on error
type LoginForm struct {
	Email string
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := s.newPage(r, "Login")
		if r.URL.Query().Get("registered") != "" {
			page.Notice = "Account created. Please log in."
		}
		page.Data = LoginForm{Email: r.URL.Query().Get("email")}
		s.render(w, tmpl, http.StatusOK, page)
	}
}

// LoginSubmissionHandler processes the login form (POST /login)
func (s *Server) LoginSubmissionHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		email := r.PostFormValue("email")
		password := r.PostFormValue("password")

		if !s.auth.Login(r.Context(), email, password) {
			page := s.newPage(r, "Login")
			page.Error = s.auth.Error()
			page.Data = LoginForm{Email: email}
			s.render(w, tmpl, http.StatusUnauthorized, page)
			return
		}
		redirectSuccess(w, r, navigation.RouteHome)
	}
}

// SignupForm is echoed back into the signup page on error. Passwords never are.
type SignupForm struct {
	FullName string
	Email    string
}

func (s *Server) SignupPageHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := s.newPage(r, "Sign up")
		page.Data = SignupForm{}
		s.render(w, tmpl, http.StatusOK, page)
	}
}

// SignupSubmissionHandler registers an account and sends the user to the login page
func (s *Server) SignupSubmissionHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		form := auth.RegisterForm{
			FullName:        r.PostFormValue("full_name"),
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			ConfirmPassword: r.PostFormValue("confirm_password"),
		}

		if _, err := s.auth.Register(r.Context(), form); err != nil {
			page := s.newPage(r, "Sign up")
			page.Error = s.auth.Error()
			page.Data = SignupForm{FullName: form.FullName, Email: form.Email}
			s.render(w, tmpl, http.StatusBadRequest, page)
			return
		}
		redirectSuccess(w, r, navigation.RouteLogin+"?registered=1")
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Logout(r.Context())
		redirectSuccess(w, r, navigation.RouteHome)
	}
}
