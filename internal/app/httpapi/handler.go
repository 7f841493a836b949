// Package httpapi exposes the certification REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/metrics"
	"github.com/taimoor511/certiqas-backend/internal/app/services/admins"
	"github.com/taimoor511/certiqas-backend/internal/app/services/brokers"
	"github.com/taimoor511/certiqas-backend/internal/app/services/properties"
	"github.com/taimoor511/certiqas-backend/internal/middleware"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// maxUploadBytes bounds each multipart submission.
const maxUploadBytes = 50 << 20

// Config holds handler settings.
type Config struct {
	JWTSecret       string
	PublicRateLimit int
	PublicBurst     int
	AllowedOrigins  []string
}

type handler struct {
	app   *app.Application
	log   *logger.Logger
	start time.Time
}

// NewHandler returns the full HTTP surface: public endpoints, the
// authenticated API and operational endpoints.
func NewHandler(application *app.Application, cfg Config) http.Handler {
	h := &handler{
		app:   application,
		log:   application.Logger(),
		start: time.Now(),
	}

	auth := middleware.NewAuth(cfg.JWTSecret, h.log)
	publicLimit := cfg.PublicRateLimit
	if publicLimit == 0 {
		publicLimit = 20
	}
	publicBurst := cfg.PublicBurst
	if publicBurst == 0 {
		publicBurst = 2 * publicLimit
	}
	limiter := middleware.NewRateLimiter(publicLimit, publicBurst, h.log)

	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	r.Handle("/properties/public",
		limiter.Handler(http.HandlerFunc(h.publicList))).Methods(http.MethodGet)
	r.Handle("/properties/public/{id}",
		limiter.Handler(http.HandlerFunc(h.publicGet))).Methods(http.MethodGet)

	authed := func(fn http.HandlerFunc) http.Handler { return auth.Handler(fn) }
	r.Handle("/properties", authed(h.submit)).Methods(http.MethodPost)
	r.Handle("/properties", authed(h.list)).Methods(http.MethodGet)
	r.Handle("/properties/{id}/mint", authed(h.decide)).Methods(http.MethodPost)
	r.Handle("/properties/{id}", authed(h.get)).Methods(http.MethodGet)

	r.Handle("/admins", authed(h.createAdmin)).Methods(http.MethodPost)
	r.Handle("/admins", authed(h.listAdmins)).Methods(http.MethodGet)
	r.Handle("/admins/{id}", authed(h.updateAdmin)).Methods(http.MethodPut)
	r.Handle("/admins/{id}", authed(h.deleteAdmin)).Methods(http.MethodDelete)

	r.Handle("/brokers", authed(h.createBroker)).Methods(http.MethodPost)
	r.Handle("/brokers", authed(h.listBrokers)).Methods(http.MethodGet)
	r.Handle("/brokers/{id}", authed(h.getBroker)).Methods(http.MethodGet)
	r.Handle("/brokers/{id}", authed(h.updateBroker)).Methods(http.MethodPut)
	r.Handle("/brokers/{id}", authed(h.deleteBroker)).Methods(http.MethodDelete)

	return middleware.NewCORS(cfg.AllowedOrigins).Handler(r)
}

// Health ----------------------------------------------------------------------

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.start).Seconds()),
	})
}

// Auth ------------------------------------------------------------------------

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	session, err := h.app.Admins.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"token": session.Token,
		"user":  session.User,
	})
}

// Properties ------------------------------------------------------------------

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.Validation("malformed multipart form"))
		return
	}

	input := properties.SubmissionInput{
		PropertyID:      r.FormValue("propertyId"),
		ReraPermit:      r.FormValue("reraPermit"),
		DeveloperName:   r.FormValue("developerName"),
		ProjectName:     r.FormValue("projectName"),
		Location:        r.FormValue("location"),
		UnitType:        r.FormValue("unitType"),
		BrokerCompanies: brokerCompanies(r),
		Description:     r.FormValue("description"),
		Bedrooms:        r.FormValue("bedrooms"),
		Bathrooms:       r.FormValue("bathrooms"),
		AreaSqFt:        r.FormValue("areaSqft"),
	}

	image, err := formFile(r, "image")
	if err != nil {
		writeError(w, err)
		return
	}
	input.Image = image

	document, err := formFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}
	input.Document = document

	cert, err := h.app.Properties.Submit(r.Context(), actor, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{"property": cert})
}

// brokerCompanies accepts either repeated brokerCompany form values or a
// single comma-separated one.
func brokerCompanies(r *http.Request) []string {
	values := r.Form["brokerCompany"]
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}
	return values
}

func formFile(r *http.Request, field string) (*properties.FileUpload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("unreadable %s upload", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, apperr.Validation("unreadable %s upload", field)
	}
	if len(data) > maxUploadBytes {
		return nil, apperr.Validation("%s exceeds the %dMB limit", field, maxUploadBytes>>20)
	}
	return &properties.FileUpload{Name: header.Filename, Data: data}, nil
}

func (h *handler) decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var payload struct {
		Status property.MintingStatus `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	cert, err := h.app.Properties.Decide(r.Context(), actor, mux.Vars(r)["id"], payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"property": cert})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	certs, err := h.app.Properties.List(r.Context(), actor,
		property.MintingStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, err)
		return
	}
	if certs == nil {
		certs = []property.Certificate{}
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"properties": certs})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	cert, err := h.app.Properties.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"property": cert})
}

func (h *handler) publicList(w http.ResponseWriter, r *http.Request) {
	query := properties.PublicQuery{
		PropertyID:    r.URL.Query().Get("propertyId"),
		DeveloperName: r.URL.Query().Get("developerName"),
		ProjectName:   r.URL.Query().Get("projectName"),
	}

	var err error
	if query.Page, err = intQuery(r, "page"); err != nil {
		writeError(w, err)
		return
	}
	if query.Limit, err = intQuery(r, "limit"); err != nil {
		writeError(w, err)
		return
	}

	page, err := h.app.Properties.PublicList(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	if page.Properties == nil {
		page.Properties = []property.Certificate{}
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"properties": page.Properties,
		"total":      page.Total,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": page.TotalPages,
	})
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return value, nil
}

func (h *handler) publicGet(w http.ResponseWriter, r *http.Request) {
	cert, err := h.app.Properties.PublicGet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"property": cert})
}

// Admins ----------------------------------------------------------------------

func (h *handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var payload struct {
		Name        string    `json:"name"`
		Email       string    `json:"email"`
		Password    string    `json:"password"`
		CompanyName string    `json:"companyName"`
		Role        user.Role `json:"role"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	created, err := h.app.Admins.Create(r.Context(), actor, admins.CreateInput{
		Name:        payload.Name,
		Email:       payload.Email,
		Password:    payload.Password,
		CompanyName: payload.CompanyName,
		Role:        payload.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{"user": created})
}

func (h *handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	users, err := h.app.Admins.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *handler) updateAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var payload struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		CompanyName string `json:"companyName"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	updated, err := h.app.Admins.Update(r.Context(), actor, mux.Vars(r)["id"], admins.UpdateInput{
		Name:        payload.Name,
		Email:       payload.Email,
		Password:    payload.Password,
		CompanyName: payload.CompanyName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"user": updated})
}

func (h *handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	if err := h.app.Admins.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"message": "user deleted"})
}

// Brokers ---------------------------------------------------------------------

type brokerPayload struct {
	Name      string `json:"brokerName"`
	Email     string `json:"brokerEmail"`
	ContactNo string `json:"contactNo"`
}

func (h *handler) createBroker(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var payload brokerPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	created, err := h.app.Brokers.Create(r.Context(), actor, brokers.Input{
		Name:      payload.Name,
		Email:     payload.Email,
		ContactNo: payload.ContactNo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]interface{}{"broker": created})
}

func (h *handler) getBroker(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	b, err := h.app.Brokers.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"broker": b})
}

func (h *handler) listBrokers(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	list, err := h.app.Brokers.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"brokers": list})
}

func (h *handler) updateBroker(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	var payload brokerPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	updated, err := h.app.Brokers.Update(r.Context(), actor, mux.Vars(r)["id"], brokers.Input{
		Name:      payload.Name,
		Email:     payload.Email,
		ContactNo: payload.ContactNo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"broker": updated})
}

func (h *handler) deleteBroker(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("authentication required"))
		return
	}

	if err := h.app.Brokers.Delete(r.Context(), actor, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"message": "broker deleted"})
}

// Helpers ---------------------------------------------------------------------

func decodeJSON(body io.Reader, v interface{}) error {
	return json.NewDecoder(body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, fields map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, err error) {
	message := "internal server error"
	var e *apperr.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	writeJSON(w, apperr.StatusFor(err), map[string]interface{}{
		"success": false,
		"message": message,
	})
}
