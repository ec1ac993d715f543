package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/docflow/internal/model"
)

// Pagination mirrors the envelope pagination block.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListActivities fetches recent activities, newest first.
func (c *Client) ListActivities(ctx context.Context, limit, offset int) (model.ActivityList, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var out model.ActivityList
	err := c.do(ctx, http.MethodGet, withQuery(c.baseURL+"/activities", q), nil, &out)
	return out, err
}

// CreateActivity records an activity for the caller's tenant.
func (c *Client) CreateActivity(ctx context.Context, a model.Activity) (model.Activity, error) {
	var out model.Activity
	err := c.do(ctx, http.MethodPost, c.baseURL+"/activities", a, &out)
	return out, err
}

// CustomerQuery filters ListCustomers.
type CustomerQuery struct {
	Status model.CustomerStatus
	Plan   model.Plan
	Limit  int
	Offset int
}

// ListCustomers fetches one page of customers.
func (c *Client) ListCustomers(ctx context.Context, cq CustomerQuery) ([]model.Customer, Pagination, error) {
	q := url.Values{}
	if cq.Status != "" {
		q.Set("status", string(cq.Status))
	}
	if cq.Plan != "" {
		q.Set("plan", string(cq.Plan))
	}
	if cq.Limit > 0 {
		q.Set("limit", strconv.Itoa(cq.Limit))
	}
	if cq.Offset > 0 {
		q.Set("offset", strconv.Itoa(cq.Offset))
	}
	var out page[model.Customer]
	if err := c.do(ctx, http.MethodGet, withQuery(c.baseURL+"/customers", q), nil, &out); err != nil {
		return nil, Pagination{}, err
	}
	return out.Data, out.Pagination, nil
}

// GetCustomer fetches one customer.
func (c *Client) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	var out model.Customer
	err := c.do(ctx, http.MethodGet, c.baseURL+"/customers/"+url.PathEscape(id), nil, &out)
	return out, err
}

// CreateCustomer adds a customer.
func (c *Client) CreateCustomer(ctx context.Context, in model.Customer) (model.Customer, error) {
	var out model.Customer
	err := c.do(ctx, http.MethodPost, c.baseURL+"/customers", in, &out)
	return out, err
}

// UpdateCustomer applies patch to a customer.
func (c *Client) UpdateCustomer(ctx context.Context, id string, patch model.CustomerPatch) (model.Customer, error) {
	var out model.Customer
	err := c.do(ctx, http.MethodPatch, c.baseURL+"/customers/"+url.PathEscape(id), patch, &out)
	return out, err
}

// DeleteCustomer removes a customer.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/customers/"+url.PathEscape(id), nil, nil)
}

// ContactCustomer queues a contact request for a customer.
func (c *Client) ContactCustomer(ctx context.Context, id string, req model.ContactRequest) error {
	return c.do(ctx, http.MethodPost, c.baseURL+"/customers/"+url.PathEscape(id)+"/contact", req, nil)
}

// ListOCRErrors fetches the OCR triage list and its statistics.
func (c *Client) ListOCRErrors(ctx context.Context) (model.OCRErrorList, error) {
	var out model.OCRErrorList
	err := c.do(ctx, http.MethodGet, c.baseURL+"/ocr/errors", nil, &out)
	return out, err
}

// OCRAction records a triage action on an OCR error.
func (c *Client) OCRAction(ctx context.Context, req model.OCRActionRequest) (model.Activity, error) {
	var out model.Activity
	err := c.do(ctx, http.MethodPost, c.baseURL+"/ocr/errors", req, &out)
	return out, err
}

// ListLeads fetches one page of leads.
func (c *Client) ListLeads(ctx context.Context, limit, offset int) ([]model.Lead, Pagination, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var out page[model.Lead]
	if err := c.do(ctx, http.MethodGet, withQuery(c.baseURL+"/leads", q), nil, &out); err != nil {
		return nil, Pagination{}, err
	}
	return out.Data, out.Pagination, nil
}

// SubmitLead posts a lead to the public capture endpoint.
func (c *Client) SubmitLead(ctx context.Context, l model.Lead) (model.Lead, error) {
	var out model.Lead
	err := c.do(ctx, http.MethodPost, c.publicURL()+"/leads", l, &out)
	return out, err
}
