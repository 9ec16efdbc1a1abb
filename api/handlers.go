package api

import (
	"context"
	"net/http"
	"time"

	"ioclens/core"
	"ioclens/metrics"
)

// AnalyzeURLRequest is the body of POST /api/analyze-url
type AnalyzeURLRequest struct {
	URL string `json:"url" validate:"required,http_url,max=2048" example:"https://example.com/threat-report"`
}

// AnalyzeURLResponse is the outcome of an analysis
type AnalyzeURLResponse struct {
	Indicators core.IOCResult `json:"indicators"`
	Origin     core.Origin    `json:"origin" example:"fresh"`
	Message    string         `json:"message,omitempty" example:"Retrieved from cache"`
	ID         int64          `json:"id" example:"42"`
}

// GenerateSearchesRequest is the body of POST /api/generate-searches
type GenerateSearchesRequest struct {
	Indicators []core.Indicator `json:"indicators" validate:"required,dive"`
	IOCID      *int64           `json:"iocId,omitempty" validate:"omitempty,gt=0" example:"42"`
}

// LogoutResponse confirms a logout
type LogoutResponse struct {
	Success bool `json:"success" example:"true"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// analyzeURL godoc
//
//	@Summary		Analyze a URL
//	@Description	Scrapes the page, extracts indicators of compromise and stores the result. A URL analyzed before is served from the store.
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Security		CookieAuth
//	@Param			request	body		AnalyzeURLRequest	true	"URL to analyze"
//	@Success		200		{object}	AnalyzeURLResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/analyze-url [post]
func (a *API) analyzeURL(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyzeURL"

	var req AnalyzeURLRequest
	if err := a.decodeJSONBodyWithLimit(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if err := a.validateRequest(op, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	user, _ := GetUser(r.Context())
	result, err := a.analyzer.Analyze(r.Context(), req.URL, &user.ID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	respondJSON(w, AnalyzeURLResponse{
		Indicators: result.IOCResult,
		Origin:     result.Origin,
		Message:    result.Message,
		ID:         result.Record.ID,
	}, http.StatusOK)
}

// generateSearches godoc
//
//	@Summary		Generate SIEM queries
//	@Description	Produces QRadar AQL and Sentinel KQL queries for the indicators. With iocId the queries are stored for that record.
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Security		CookieAuth
//	@Param			request	body		GenerateSearchesRequest	true	"Indicators and optional record id"
//	@Success		200		{object}	core.SearchQueryResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/generate-searches [post]
func (a *API) generateSearches(w http.ResponseWriter, r *http.Request) {
	const op = "api.generateSearches"

	var req GenerateSearchesRequest
	if err := a.decodeJSONBodyWithLimit(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if err := a.validateRequest(op, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	user, _ := GetUser(r.Context())
	if req.IOCID != nil {
		// queries are only attached to the caller's own records
		if _, err := a.history.GetRecord(r.Context(), *req.IOCID, user.ID); err != nil {
			a.writeServiceError(w, r, err)
			return
		}
	}

	result, err := a.queries.Generate(r.Context(), req.Indicators, req.IOCID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, result, http.StatusOK)
}

// getHistory godoc
//
//	@Summary		List past analyses
//	@Description	Summaries of the caller's analyses in the order they were made
//	@Tags			history
//	@Produce		json
//	@Security		CookieAuth
//	@Success		200	{array}		core.HistorySummary
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/history [get]
func (a *API) getHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := GetUser(r.Context())
	summaries, err := a.history.List(r.Context(), user.ID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []core.HistorySummary{}
	}
	respondJSON(w, summaries, http.StatusOK)
}

// getRecord godoc
//
//	@Summary		Get an analysis record
//	@Tags			history
//	@Produce		json
//	@Security		CookieAuth
//	@Param			id	path		int	true	"Record ID"
//	@Success		200	{object}	core.AnalysisRecord
//	@Failure		400	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/iocs/{id} [get]
func (a *API) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "api.getRecord")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	user, _ := GetUser(r.Context())
	record, err := a.history.GetRecord(r.Context(), id, user.ID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, record, http.StatusOK)
}

// getRecordSearches godoc
//
//	@Summary		Get stored queries for a record
//	@Description	Returns the most recently generated query set
//	@Tags			history
//	@Produce		json
//	@Security		CookieAuth
//	@Param			id	path		int	true	"Record ID"
//	@Success		200	{object}	core.SearchQueryRecord
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/iocs/{id}/searches [get]
func (a *API) getRecordSearches(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "api.getRecordSearches")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	user, _ := GetUser(r.Context())
	queries, err := a.history.GetSearchQueries(r.Context(), id, user.ID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, queries, http.StatusOK)
}

// getCurrentUser godoc
//
//	@Summary		Current user
//	@Description	The signed in user, or null
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	core.User
//	@Router			/api/current-user [get]
func (a *API) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUser(r.Context())
	if !ok {
		respondJSON(w, nil, http.StatusOK)
		return
	}
	respondJSON(w, user, http.StatusOK)
}

// logout godoc
//
//	@Summary		Log out
//	@Description	Revokes the session and clears the session cookie
//	@Tags			auth
//	@Produce		json
//	@Security		CookieAuth
//	@Success		200	{object}	LogoutResponse
//	@Router			/api/logout [post]
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := GetSession(r.Context()); ok {
		a.revokeSession(claims)
		metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
		LogWithRequestID(r.Context(), a.logger).Infow("User logged out", "user_id", claims.UserID)
	}
	a.clearCookie(w, a.config.Auth.CookieName)
	respondJSON(w, LogoutResponse{Success: true}, http.StatusOK)
}

// healthCheck godoc
//
//	@Summary		Health check
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	if a.health == nil {
		respondJSON(w, HealthResponse{Status: "healthy"}, http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.health.HealthCheck(ctx); err != nil {
		a.logger.Warnw("Health check failed", "error", err)
		respondJSON(w, HealthResponse{Status: "unhealthy"}, http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}
