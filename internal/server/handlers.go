package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/docflow/internal/auth"
	"github.com/nhle/docflow/internal/envelope"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/roi"
	"github.com/nhle/docflow/internal/store"
)

// ocrListLimit caps the activities scanned for the OCR triage list.
const ocrListLimit = 200

var ocrActivityTypes = []model.ActivityType{
	model.ActivityOCRFailed,
	model.ActivitySystemError,
	model.ActivityError,
	model.ActivityAdminAction,
}

// publicIdentity owns records created by unauthenticated forms.
var publicIdentity = model.Identity{
	UserID:   "public",
	TenantID: model.DefaultTenant,
	Role:     model.RoleUser,
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// respondError writes the classified error envelope, logging anything
// that is not a client error.
func (s *Server) respondError(c *gin.Context, err error) {
	body := envelope.Classify(err, s.devMode)
	if body.Code == envelope.CodeInternal {
		_ = c.Error(err)
		s.log.Error("request failed",
			"request_id", c.GetString(envelope.RequestIDKey),
			"path", c.FullPath(),
			"error", err,
		)
	}
	envelope.Fail(c, body.Code, body.Message, body.Details)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		envelope.ValidationFailed(c, []model.FieldError{{
			Field:   "body",
			Message: "request body must be valid JSON",
			Code:    "invalid_json",
		}})
		return false
	}
	return true
}

// pageFromQuery reads limit and offset. Values outside the allowed range
// are clamped; values that are not integers are rejected.
func pageFromQuery(c *gin.Context) (store.PageRequest, bool) {
	var (
		p      store.PageRequest
		fields []model.FieldError
	)
	parse := func(name string, dst *int) {
		raw := c.Query(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, model.FieldError{Field: name, Message: "must be an integer", Code: "invalid_type"})
			return
		}
		*dst = n
	}
	parse("limit", &p.Limit)
	parse("offset", &p.Offset)
	if len(fields) > 0 {
		envelope.ValidationFailed(c, fields)
		return store.PageRequest{}, false
	}
	return store.ClampPage(p), true
}

func (s *Server) identity(c *gin.Context) (model.Identity, bool) {
	id, err := auth.RequireIdentity(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return model.Identity{}, false
	}
	return id, true
}

func actorOf(id model.Identity) string {
	if id.Email != "" {
		return id.Email
	}
	return id.UserID
}

// publish hands a to the broadcaster. Delivery failures are logged; the
// activity is already stored and clients catch up on their next poll.
func (s *Server) publish(ctx context.Context, a model.Activity) {
	if err := s.publisher.Publish(ctx, a); err != nil {
		s.log.Warn("publishing activity", "activity_id", a.ID, "tenant_id", a.TenantID, "error", err)
	}
}

func (s *Server) handleListActivities(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	items, res, err := s.activities.Recent(c.Request.Context(), id, page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	envelope.OK(c, model.ActivityList{
		Activities: items,
		Total:      res.Total,
		Limit:      res.Limit,
		Offset:     res.Offset,
	})
}

func validateNewActivity(a model.Activity) error {
	var fields []model.FieldError
	if a.Type == "" || a.Type == model.ActivityUnknown {
		fields = append(fields, model.FieldError{Field: "type", Message: "unknown activity type", Code: "invalid_enum"})
	}
	if a.Status != "" && !a.Status.Valid() {
		fields = append(fields, model.FieldError{Field: "status", Message: "unknown status", Code: "invalid_enum"})
	}
	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}

func (s *Server) handleCreateActivity(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	var in model.Activity
	if !bindJSON(c, &in) {
		return
	}
	if err := validateNewActivity(in); err != nil {
		s.respondError(c, err)
		return
	}
	if in.Actor == "" {
		in.Actor = actorOf(id)
	}

	a, err := s.activities.Create(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(c.Request.Context(), a)
	envelope.Created(c, a)
}

func (s *Server) handleListCustomers(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	f := store.CustomerFilter{
		Status: model.CustomerStatus(c.Query("status")),
		Plan:   model.Plan(c.Query("plan")),
	}
	var fields []model.FieldError
	if f.Status != "" && !f.Status.Valid() {
		fields = append(fields, model.FieldError{Field: "status", Message: "unknown status", Code: "invalid_enum"})
	}
	if f.Plan != "" && !f.Plan.Valid() {
		fields = append(fields, model.FieldError{Field: "plan", Message: "unknown plan", Code: "invalid_enum"})
	}
	if len(fields) > 0 {
		envelope.ValidationFailed(c, fields)
		return
	}

	items, res, err := s.customers.List(c.Request.Context(), id, f, page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	envelope.Paginated(c, items, res.Total, res.Limit, res.Offset)
}

func (s *Server) handleGetCustomer(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	cust, err := s.customers.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	envelope.OK(c, cust)
}

func (s *Server) handleCreateCustomer(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	var in model.Customer
	if !bindJSON(c, &in) {
		return
	}
	cust, err := s.customers.Create(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	a, err := s.activities.Create(c.Request.Context(), id, model.Activity{
		Type:    model.ActivityCustomerRegistered,
		Action:  "Customer " + cust.Name + " registered",
		Actor:   actorOf(id),
		Details: model.Details{CustomerID: cust.ID, Email: cust.Email},
	})
	if err != nil {
		s.log.Warn("recording customer registration", "customer_id", cust.ID, "error", err)
	} else {
		s.publish(c.Request.Context(), a)
	}
	envelope.Created(c, cust)
}

func (s *Server) handleUpdateCustomer(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	var patch model.CustomerPatch
	if !bindJSON(c, &patch) {
		return
	}
	if err := patch.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	cust, err := s.customers.Update(c.Request.Context(), id, c.Param("id"), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	envelope.OK(c, cust)
}

func (s *Server) handleDeleteCustomer(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	customerID := c.Param("id")
	if err := s.customers.Delete(c.Request.Context(), id, customerID); err != nil {
		s.respondError(c, err)
		return
	}
	envelope.OK(c, gin.H{"id": customerID, "deleted": true})
}

// handleContactCustomer records the contact request as an activity. The
// mail itself is sent by whoever consumes contact_requested activities.
func (s *Server) handleContactCustomer(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	var req model.ContactRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	cust, err := s.customers.Get(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "Contact request for " + cust.Name
	}
	a, err := s.activities.Create(c.Request.Context(), id, model.Activity{
		Type:    model.ActivityContactRequested,
		Action:  subject,
		Actor:   actorOf(id),
		Status:  model.StatusPending,
		Details: model.Details{CustomerID: cust.ID, Email: req.Email},
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(c.Request.Context(), a)
	envelope.Accepted(c, a)
}

func (s *Server) handleListOCRErrors(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	acts, err := s.activities.ByTypes(c.Request.Context(), id, ocrActivityTypes, ocrListLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	errs := model.FoldOCRErrors(acts)
	if errs == nil {
		errs = []model.OCRError{}
	}
	envelope.OK(c, model.OCRErrorList{Errors: errs, Stats: model.SummarizeOCRErrors(errs)})
}

func (s *Server) handleOCRAction(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	var req model.OCRActionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, err)
		return
	}
	a, err := s.activities.Create(c.Request.Context(), id, req.ToActivity(actorOf(id)))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(c.Request.Context(), a)
	envelope.Created(c, a)
}

// handleListLeads shows staff the leads captured by the public form.
func (s *Server) handleListLeads(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	scoped, err := auth.ResolveTenant(id, model.DefaultTenant)
	if err != nil {
		s.respondError(c, err)
		return
	}
	items, res, err := s.leads.List(c.Request.Context(), scoped, page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	envelope.Paginated(c, items, res.Total, res.Limit, res.Offset)
}

func (s *Server) handleSubmitLead(c *gin.Context) {
	var in model.Lead
	if !bindJSON(c, &in) {
		return
	}
	lead, err := s.leads.Create(c.Request.Context(), publicIdentity, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.log.Info("lead captured", "lead_id", lead.ID, "source", lead.Source)
	envelope.Created(c, lead)
}

func (s *Server) handleROI(c *gin.Context) {
	var in roi.Input
	if !bindJSON(c, &in) {
		return
	}
	res, err := roi.Calculate(in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	envelope.OK(c, res)
}

func (s *Server) handleCashflow(c *gin.Context) {
	var in roi.CashflowInput
	if !bindJSON(c, &in) {
		return
	}
	envelope.OK(c, roi.Cashflow(in))
}
