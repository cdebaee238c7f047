package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Gateway serves API Gateway REST proxy events.
type Gateway struct {
	h *Handler
}

func NewGateway(h *Handler) *Gateway {
	return &Gateway{h: h}
}

// Handle routes one proxy request. It only returns an error when the
// response cannot be encoded; API failures are ordinary responses.
func (g *Gateway) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, body := g.route(ctx, req)
	httpRequestsTotal.WithLabelValues(req.HTTPMethod, routeLabel(req.Path), strconv.Itoa(status)).Inc()

	b, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}, nil
}

func (g *Gateway) route(ctx context.Context, req events.APIGatewayProxyRequest) (int, any) {
	path := strings.TrimSuffix(req.Path, "/")
	query := queryValues(req)

	switch {
	case path == "/images/initiate_upload":
		if req.HTTPMethod != http.MethodPost {
			return methodNotAllowed()
		}
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				return http.StatusBadRequest, errorBody{Error: errorDetail{Code: "VALIDATION_ERROR", Message: "request body is not valid base64"}}
			}
			body = decoded
		}
		return g.h.initiate(ctx, body)

	case path == "/images":
		if req.HTTPMethod != http.MethodGet {
			return methodNotAllowed()
		}
		return g.h.list(ctx, query)

	case strings.HasPrefix(path, "/images/"):
		id := req.PathParameters["imageId"]
		if id == "" {
			id = strings.TrimPrefix(path, "/images/")
		}
		if strings.Contains(id, "/") {
			return notFound()
		}
		switch req.HTTPMethod {
		case http.MethodGet:
			return g.h.get(ctx, id)
		case http.MethodDelete:
			return g.h.delete(ctx, id, query)
		default:
			return methodNotAllowed()
		}
	}
	return notFound()
}

func queryValues(req events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, vs := range req.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range req.QueryStringParameters {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}
	return q
}

func notFound() (int, any) {
	return http.StatusNotFound, errorBody{Error: errorDetail{Code: "NOT_FOUND", Message: "route not found"}}
}

func methodNotAllowed() (int, any) {
	return http.StatusMethodNotAllowed, errorBody{Error: errorDetail{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"}}
}
