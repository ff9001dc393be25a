package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/middleware"
	"github.com/anatomy-twin-server/internal/projection"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound
	}
	switch domain.CodeOf(err) {
	case domain.ErrCodeRegionNotFound, domain.ErrCodeModuleNotFound:
		return http.StatusNotFound
	case domain.ErrCodeValidation, domain.ErrCodeInvalidParameters, domain.ErrCodeInvalidLevel:
		return http.StatusBadRequest
	case domain.ErrCodeUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// describe maps err to its HTTP status and client-facing body, logging
// server-side failures.
func (s *Server) describe(err error, requestID string) (int, errorBody) {
	status := statusFor(err)
	body := errorBody{
		Code:      domain.CodeOf(err),
		Message:   err.Error(),
		RequestID: requestID,
	}
	if status == http.StatusNotFound && body.Code == domain.ErrCodeInternal {
		body.Code = domain.ErrCodeNotFound
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Details
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("request_id", requestID).Error("Request failed")
	}
	return status, body
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := s.describe(err, c.GetString(middleware.RequestIDKey))
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// project renders view at level, signing model URLs when assets are
// configured.
func (s *Server) project(ctx context.Context, view *domain.RegionalEncyclopediaData, level domain.Level) *projection.RegionView {
	out := projection.Region(view, level)
	if s.opts.Assets != nil {
		out.Models = s.opts.Assets.Sign(ctx, out.Models)
	}
	return out
}

// level reads the optional ?level= parameter, falling back to the shared
// level.
func (s *Server) level(c *gin.Context) (domain.Level, error) {
	raw := c.Query("level")
	if raw == "" {
		return s.opts.Complexity.Level(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("level", "not an integer", raw)
	}
	if !domain.Level(n).Valid() {
		return 0, domain.NewInvalidLevelError(n, c.GetString(middleware.RequestIDKey))
	}
	return domain.Level(n), nil
}

func regionID(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param("id")))
}

type regionSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	BodySystems []string `json:"body_systems"`
}

func summarize(regions []*domain.RegionContent) []regionSummary {
	out := make([]regionSummary, 0, len(regions))
	for _, rc := range regions {
		out = append(out, regionSummary{
			ID:          rc.ID,
			Name:        rc.Name,
			Summary:     projection.FirstSentence(rc.Description),
			BodySystems: rc.BodySystems,
		})
	}
	return out
}

// handleListRegions lists every region, or those of ?system=.
func (s *Server) handleListRegions(c *gin.Context) {
	var regions []*domain.RegionContent
	if system := c.Query("system"); system != "" {
		regions = s.opts.Regions.RegionsBySystem(system)
	} else {
		for _, id := range s.opts.Regions.RegionIDs() {
			if rc, ok := s.opts.Regions.GetRegionContent(id); ok {
				regions = append(regions, rc)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"regions": summarize(regions)})
}

func (s *Server) handleSearchRegions(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		s.fail(c, domain.NewValidationError("q", "is required", q))
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "regions": summarize(s.opts.Regions.Search(q))})
}

func (s *Server) handleGetRegion(c *gin.Context) {
	level, err := s.level(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	view, err := s.opts.Fetcher.Fetch(c.Request.Context(), regionID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.project(c.Request.Context(), view, level))
}

// handleRegionModels lists the region's 3D models, with presigned URLs when
// an asset bucket is configured.
func (s *Server) handleRegionModels(c *gin.Context) {
	id := regionID(c)
	if _, ok := s.opts.Regions.GetRegionContent(id); !ok {
		s.fail(c, domain.NewRegionNotFoundError(id, c.GetString(middleware.RequestIDKey)))
		return
	}
	models := s.opts.Regions.ModelsForRegion(id)
	body := gin.H{"region_id": id, "signed": false}
	if s.opts.Assets != nil {
		models = s.opts.Assets.Sign(c.Request.Context(), models)
		body["signed"] = true
		body["expires_in_seconds"] = int(s.opts.Assets.Expiry().Seconds())
	}
	if models == nil {
		models = []domain.ModelReference{}
	}
	body["models"] = models
	c.JSON(http.StatusOK, body)
}

// handleRegionPatient filters a posted record for the region. Nothing
// relevant yields 204.
func (s *Server) handleRegionPatient(c *gin.Context) {
	var record domain.PatientRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		s.fail(c, domain.NewAppError(domain.ErrCodeInvalidParameters, "invalid patient record", err.Error(), c.GetString(middleware.RequestIDKey)))
		return
	}
	data := s.opts.Patients.ForRegion(regionID(c), &record)
	if data == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) handleSavePatient(c *gin.Context) {
	if s.opts.Records == nil {
		s.fail(c, domain.NewAppError(domain.ErrCodeUpstream, "patient records are not configured", "", c.GetString(middleware.RequestIDKey)))
		return
	}
	var record domain.PatientRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		s.fail(c, domain.NewAppError(domain.ErrCodeInvalidParameters, "invalid patient record", err.Error(), c.GetString(middleware.RequestIDKey)))
		return
	}
	record.PatientID = c.Param("patientId")
	if err := s.opts.Records.Save(c.Request.Context(), &record); err != nil {
		s.fail(c, domain.WrapAppError(domain.ErrCodePersistence, err, c.GetString(middleware.RequestIDKey)))
		return
	}
	s.opts.Patients.Purge()
	c.Status(http.StatusNoContent)
}

// handlePatientRegion loads a stored record and explains its region slice
// at the requested level.
func (s *Server) handlePatientRegion(c *gin.Context) {
	if s.opts.Records == nil {
		s.fail(c, domain.NewAppError(domain.ErrCodeUpstream, "patient records are not configured", "", c.GetString(middleware.RequestIDKey)))
		return
	}
	level, err := s.level(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	record, err := s.opts.Records.Get(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	data := s.opts.Patients.ForRegion(regionID(c), record)
	if data == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, projection.Patient(data, level))
}

type complexityBody struct {
	Level int    `json:"level"`
	Label string `json:"label,omitempty"`
}

func levelBody(l domain.Level) complexityBody {
	return complexityBody{Level: int(l), Label: l.String()}
}

func (s *Server) handleGetComplexity(c *gin.Context) {
	c.JSON(http.StatusOK, levelBody(s.opts.Complexity.Level()))
}

func (s *Server) handleSetComplexity(c *gin.Context) {
	var body complexityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, domain.NewAppError(domain.ErrCodeInvalidParameters, "invalid body", err.Error(), c.GetString(middleware.RequestIDKey)))
		return
	}
	if !s.opts.Complexity.Set(c.Request.Context(), domain.Level(body.Level)) {
		s.fail(c, domain.NewInvalidLevelError(body.Level, c.GetString(middleware.RequestIDKey)))
		return
	}
	s.logger.WithFields(logrus.Fields{
		"level":      body.Level,
		"request_id": c.GetString(middleware.RequestIDKey),
	}).Info("Complexity level set through API")
	c.JSON(http.StatusOK, levelBody(s.opts.Complexity.Level()))
}

func (s *Server) handleListModules(c *gin.Context) {
	mods := s.opts.Modules.All()
	switch {
	case c.Query("q") != "":
		mods = s.opts.Modules.Search(c.Query("q"))
	case c.Query("specialty") != "":
		mods = s.opts.Modules.FindBySpecialty(c.Query("specialty"))
	case c.Query("type") != "":
		mods = s.opts.Modules.FindByType(domain.ModuleType(c.Query("type")))
	}

	type moduleSummary struct {
		ID        string            `json:"id"`
		Title     string            `json:"title"`
		Type      domain.ModuleType `json:"type"`
		Specialty string            `json:"specialty,omitempty"`
	}
	out := make([]moduleSummary, 0, len(mods))
	for _, m := range mods {
		out = append(out, moduleSummary{ID: m.ID, Title: m.Title, Type: m.Type, Specialty: m.Specialty})
	}
	c.JSON(http.StatusOK, gin.H{"modules": out})
}

func (s *Server) handleGetModule(c *gin.Context) {
	level, err := s.level(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	m, ok := s.opts.Modules.Get(c.Param("id"))
	if !ok {
		s.fail(c, domain.NewModuleNotFoundError(c.Param("id"), c.GetString(middleware.RequestIDKey)))
		return
	}
	c.JSON(http.StatusOK, s.opts.Modules.Render(m, level))
}

func (s *Server) handleValidateModules(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Modules.Validate())
}
