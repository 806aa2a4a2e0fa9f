// Package api exposes the public read and contribution surface of a
// sale campaign over HTTP.
//
// Owner operations (rate and stage changes, settlement, finish) are
// deliberately not routable: they require an authenticated caller
// identity, which this surface does not carry.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/TalentifyApp/go-talentify-sale/audit"
	"github.com/TalentifyApp/go-talentify-sale/campaign"
	"github.com/TalentifyApp/go-talentify-sale/logger"
)

// API serves the campaign's HTTP surface.
type API struct {
	campaign *campaign.Campaign
	journal  *audit.Journal
	log      *logrus.Entry
}

// New builds the API around a campaign and its audit journal. The
// journal may be nil, in which case the audit routes respond 404.
func New(c *campaign.Campaign, j *audit.Journal) *API {
	return &API{
		campaign: c,
		journal:  j,
		log:      logger.New("api"),
	}
}

// ContributionRequest is the body of POST /contribute. The value is a
// hex-encoded amount of value base units.
type ContributionRequest struct {
	Contributor common.Address `json:"contributor"`
	Value       *hexutil.Big   `json:"value"`
}

func (a *API) handleStatus(w http.ResponseWriter, _ *http.Request) error {
	return WriteJSON(w, a.campaign.Status())
}

func (a *API) handleRules(w http.ResponseWriter, _ *http.Request) error {
	return WriteJSON(w, a.campaign.Rules())
}

func (a *API) handleContribute(w http.ResponseWriter, r *http.Request) error {
	var req ContributionRequest
	if err := ParseJSON(r.Body, &req); err != nil {
		return BadRequest(err)
	}
	if req.Value == nil {
		return BadRequest(errors.New("value is required"))
	}

	receipt, err := a.campaign.Contribute(req.Contributor, req.Value.ToInt())
	if err != nil {
		a.log.WithError(err).WithField("contributor", req.Contributor).Debug("Contribution rejected")
		return contributionError(err)
	}
	return WriteJSON(w, receipt)
}

// contributionError maps campaign rejections to HTTP statuses.
func contributionError(err error) error {
	switch {
	case errors.Is(err, campaign.ErrInvalidContribution),
		errors.Is(err, campaign.ErrArithmeticOverflow):
		return HTTPError(err, http.StatusBadRequest)
	case errors.Is(err, campaign.ErrCampaignPaused):
		return HTTPError(err, http.StatusServiceUnavailable)
	case errors.Is(err, campaign.ErrSaleClosed):
		return HTTPError(err, http.StatusGone)
	case errors.Is(err, campaign.ErrHardCapExceeded),
		errors.Is(err, campaign.ErrStageCapExceeded):
		return HTTPError(err, http.StatusConflict)
	case errors.Is(err, campaign.ErrCreditTransferFailed),
		errors.Is(err, campaign.ErrValueTransferFailed):
		return HTTPError(err, http.StatusBadGateway)
	}
	return err
}

func (a *API) handleRecords(w http.ResponseWriter, r *http.Request) error {
	if a.journal == nil {
		return NotFound(errors.New("audit journal is disabled"))
	}

	var (
		from  uint64
		limit = 100
		err   error
	)
	if s := r.URL.Query().Get("from"); s != "" {
		from, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return BadRequest(err)
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return BadRequest(errors.New("limit must be a positive integer"))
		}
	}

	records, err := a.journal.Range(from, limit)
	if err != nil {
		return err
	}
	if records == nil {
		records = []audit.Record{}
	}
	return WriteJSON(w, records)
}

func (a *API) handleRecord(w http.ResponseWriter, r *http.Request) error {
	if a.journal == nil {
		return NotFound(errors.New("audit journal is disabled"))
	}

	seq, err := strconv.ParseUint(mux.Vars(r)["seq"], 10, 64)
	if err != nil {
		return BadRequest(err)
	}
	record, err := a.journal.Record(seq)
	if errors.Is(err, audit.ErrNotFound) {
		return NotFound(err)
	}
	if err != nil {
		return err
	}
	return WriteJSON(w, record)
}

// Mount attaches the API routes under pathPrefix.
func (a *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		Name("sale_get_status").
		HandlerFunc(WrapHandlerFunc(a.handleStatus))
	sub.Path("/rules").
		Methods(http.MethodGet).
		Name("sale_get_rules").
		HandlerFunc(WrapHandlerFunc(a.handleRules))
	sub.Path("/contribute").
		Methods(http.MethodPost).
		Name("sale_contribute").
		HandlerFunc(WrapHandlerFunc(a.handleContribute))
	sub.Path("/audit/records").
		Methods(http.MethodGet).
		Name("sale_get_audit_records").
		HandlerFunc(WrapHandlerFunc(a.handleRecords))
	sub.Path("/audit/records/{seq}").
		Methods(http.MethodGet).
		Name("sale_get_audit_record").
		HandlerFunc(WrapHandlerFunc(a.handleRecord))
}
