// Package api exposes the image services over HTTP, both as an API Gateway
// proxy handler for Lambda and as a chi router for the local server. The two
// transports share Handler, which turns parsed requests into a status and a
// JSON-ready body.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/models"
	"github.com/dmitrijs2005/imagevault/internal/services"
)

const maxRequestBody = 64 << 10

type Uploader interface {
	Initiate(ctx context.Context, req services.InitiateRequest) (*services.InitiateResult, error)
}

type Querier interface {
	Get(ctx context.Context, imageID string) (*services.GetResult, error)
	List(ctx context.Context, req services.ListRequest) (*services.ListResult, error)
}

type Deleter interface {
	Delete(ctx context.Context, imageID string) error
	DeleteAs(ctx context.Context, caller, imageID string) error
}

type Handler struct {
	uploads Uploader
	query   Querier
	deletes Deleter
	log     logging.Logger
}

func NewHandler(uploads Uploader, query Querier, deletes Deleter, log logging.Logger) *Handler {
	return &Handler{uploads: uploads, query: query, deletes: deletes, log: log.With("component", "api")}
}

func (h *Handler) initiate(ctx context.Context, body []byte) (int, any) {
	if len(body) > maxRequestBody {
		return h.fail(ctx, "initiate", common.Validation("request body too large"))
	}
	var in initiateRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&in); err != nil {
		return h.fail(ctx, "initiate", common.Validation("request body must be a JSON object"))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return h.fail(ctx, "initiate", common.Validation("request body must contain a single JSON object"))
	}

	owner := in.Owner
	if owner == "" {
		owner = in.UserID
	}

	res, err := h.uploads.Initiate(ctx, services.InitiateRequest{
		Owner:       owner,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		MaxSize:     in.MaxSize,
		Tags:        in.Tags,
	})
	if err != nil {
		return h.fail(ctx, "initiate", err)
	}
	return http.StatusOK, initiateResponse{
		ImageID:   res.Record.ImageID,
		ObjectKey: res.Record.ObjectKey,
		Upload:    res.Upload,
	}
}

func (h *Handler) list(ctx context.Context, q url.Values) (int, any) {
	owner := q.Get("owner")
	if owner == "" {
		owner = q.Get("userId")
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return h.fail(ctx, "list", common.Validation(fmt.Sprintf("limit %q is not an integer", raw)))
		}
		limit = n
	}

	res, err := h.query.List(ctx, services.ListRequest{
		Owner:             owner,
		Status:            q.Get("status"),
		Limit:             limit,
		ContinuationToken: q.Get("continuationToken"),
	})
	if err != nil {
		return h.fail(ctx, "list", err)
	}
	items := res.Items
	if items == nil {
		items = []*models.ImageRecord{}
	}
	return http.StatusOK, listResponse{Items: items, ContinuationToken: res.NextToken}
}

func (h *Handler) get(ctx context.Context, imageID string) (int, any) {
	res, err := h.query.Get(ctx, imageID)
	if err != nil {
		return h.fail(ctx, "get", err)
	}
	return http.StatusOK, getResponse{
		DownloadURL: res.Download.URL,
		ExpiresAt:   res.Download.ExpiresAt,
		Metadata:    res.Record,
	}
}

// delete checks ownership when the caller names themselves with ?owner=.
func (h *Handler) delete(ctx context.Context, imageID string, q url.Values) (int, any) {
	var err error
	if caller := q.Get("owner"); caller != "" {
		err = h.deletes.DeleteAs(ctx, caller, imageID)
	} else {
		err = h.deletes.Delete(ctx, imageID)
	}
	if err != nil {
		return h.fail(ctx, "delete", err)
	}
	return http.StatusOK, deleteResponse{DeletedImageID: imageID}
}

func (h *Handler) fail(ctx context.Context, op string, err error) (int, any) {
	status, body := newErrorBody(err)
	if status >= 500 {
		h.log.Error(ctx, "request failed", "op", op, "code", body.Error.Code, "error", err)
	} else {
		h.log.Debug(ctx, "request rejected", "op", op, "code", body.Error.Code, "error", err)
	}
	return status, body
}
