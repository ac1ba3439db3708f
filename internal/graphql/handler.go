package graphql

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/motorplace/ugc-service/internal/auth"
	"github.com/motorplace/ugc-service/internal/governance"
	apperrors "github.com/motorplace/ugc-service/pkg/errors"
	"github.com/motorplace/ugc-service/pkg/logger"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Request is the standard GraphQL-over-HTTP POST body.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Response is the standard GraphQL response envelope.
type Response struct {
	Data   map[string]any           `json:"data"`
	Errors []apperrors.GraphQLError `json:"errors,omitempty"`
}

// Handler serves POST /graphql. Governance runs before any resolver; a
// rejected operation produces null data and a single structured error.
// Resolver failures are per-field: sibling root fields still resolve.
type Handler struct {
	resolver *Resolver
	gov      *governance.Extension
	log      *slog.Logger
}

func NewHandler(resolver *Resolver, gov *governance.Extension, log *slog.Logger) *Handler {
	return &Handler{resolver: resolver, gov: gov, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSON(w, http.StatusMethodNotAllowed, Response{
			Errors: []apperrors.GraphQLError{apperrors.ToGraphQL(
				apperrors.Validation("GraphQL endpoint only accepts POST"))},
		})
		return
	}

	var req Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeReject(w, apperrors.Validation("request body is not valid JSON"))
		return
	}
	if req.Query == "" {
		h.writeReject(w, apperrors.Validation("query is required"))
		return
	}

	ctx := r.Context()
	identity := auth.FromContext(ctx)

	if err := h.gov.Check(ctx, req.Query, req.Variables, identity); err != nil {
		h.writeReject(w, err)
		return
	}

	doc, err := parser.ParseQuery(&ast.Source{Input: req.Query})
	if err != nil {
		h.writeReject(w, apperrors.Validation("malformed GraphQL query"))
		return
	}

	op, opErr := selectOperation(doc, req.OperationName)
	if opErr != nil {
		h.writeReject(w, opErr)
		return
	}

	resp := h.execute(r, op, req.Variables)
	h.writeJSON(w, http.StatusOK, resp)
}

// execute resolves each root field independently and merges results into
// one envelope, per the GraphQL partial-response model.
func (h *Handler) execute(r *http.Request, op *ast.OperationDefinition, variables map[string]any) Response {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	resp := Response{Data: make(map[string]any, len(op.SelectionSet))}

	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}

		key := field.Name
		if field.Alias != "" {
			key = field.Alias
		}

		if field.Name == "__typename" {
			if op.Operation == ast.Mutation {
				resp.Data[key] = "Mutation"
			} else {
				resp.Data[key] = "Query"
			}
			continue
		}

		value, err := h.resolver.resolveField(ctx, op.Operation, field, variables)
		if err != nil {
			log.WarnContext(ctx, "root field failed",
				slog.String("field", field.Name),
				slog.String("error", err.Error()),
			)
			resp.Data[key] = nil
			resp.Errors = append(resp.Errors, apperrors.ToGraphQL(err))
			continue
		}
		resp.Data[key] = value
	}
	return resp
}

// selectOperation picks the operation to run, honoring operationName for
// multi-operation documents.
func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	var op *ast.OperationDefinition
	switch {
	case name != "":
		if op = doc.Operations.ForName(name); op == nil {
			return nil, apperrors.Validation("operation " + name + " not found in document")
		}
	case len(doc.Operations) == 1:
		op = doc.Operations[0]
	default:
		return nil, apperrors.Validation("operationName is required for multi-operation documents")
	}

	if op.Operation == ast.Subscription {
		return nil, apperrors.Validation("subscriptions are not supported")
	}
	return op, nil
}

// writeReject emits the whole-request failure shape: null data and one
// error, with the HTTP status derived from the error chain.
func (h *Handler) writeReject(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatus(err), Response{
		Errors: []apperrors.GraphQLError{apperrors.ToGraphQL(err)},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("failed to encode graphql response", slog.String("error", err.Error()))
	}
}
