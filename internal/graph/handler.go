package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/kinds"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
	"github.com/graphql-go/graphql/language/visitor"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandeepkv93/otp-account-service/internal/http/middleware"
	"github.com/sandeepkv93/otp-account-service/internal/http/response"
	"github.com/sandeepkv93/otp-account-service/internal/observability"
)

type HandlerOptions struct {
	MaxRequestBytes int64
	Introspection   bool
	AllowGETQueries bool
	Logger          *slog.Logger
}

type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Handler serves GraphQL over HTTP. Requests that fail to parse or validate
// get 400; executed requests get 200 even when resolvers return errors.
type Handler struct {
	schema graphql.Schema
	rules  []graphql.ValidationRuleFn
	opts   HandlerOptions
	logger *slog.Logger
}

func NewHandler(schema graphql.Schema, opts HandlerOptions) *Handler {
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = 1 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rules := graphql.SpecifiedRules
	if !opts.Introspection {
		rules = append(append([]graphql.ValidationRuleFn{}, graphql.SpecifiedRules...), noIntrospectionRule)
	}
	return &Handler{schema: schema, rules: rules, opts: opts, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			observability.RecordGraphQLRequest(r.Context(), "unknown", "too_large")
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		case errors.Is(err, errMethodNotAllowed):
			observability.RecordGraphQLRequest(r.Context(), "unknown", "method_not_allowed")
			w.Header().Set("Allow", allowHeader(h.opts.AllowGETQueries))
			response.Error(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", err.Error(), nil)
		default:
			observability.RecordGraphQLRequest(r.Context(), "unknown", "bad_request")
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		}
		return
	}

	status, result := h.execute(r.Context(), r.Method, req)
	if status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}
	response.Raw(w, status, result)
}

var errMethodNotAllowed = errors.New("method not allowed")

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Request, error) {
	var req Request
	switch r.Method {
	case http.MethodPost:
		body := http.MaxBytesReader(w, r.Body, h.opts.MaxRequestBytes)
		dec := json.NewDecoder(body)
		if err := dec.Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return req, err
			}
			return req, fmt.Errorf("malformed request body: %w", err)
		}
	case http.MethodGet:
		if !h.opts.AllowGETQueries {
			return req, errMethodNotAllowed
		}
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				return req, fmt.Errorf("malformed variables: %w", err)
			}
		}
	default:
		return req, errMethodNotAllowed
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

func (h *Handler) execute(ctx context.Context, method string, req Request) (int, *graphql.Result) {
	src := source.NewSource(&source.Source{Body: []byte(req.Query), Name: "GraphQL request"})
	doc, err := parser.Parse(parser.ParseParams{Source: src})
	if err != nil {
		observability.RecordGraphQLRequest(ctx, "unknown", "parse_error")
		return http.StatusBadRequest, &graphql.Result{Errors: gqlerrors.FormatErrors(err)}
	}

	op := selectOperation(doc, req.OperationName)
	if method == http.MethodGet && op != nil && op.Operation == ast.OperationTypeMutation {
		observability.RecordGraphQLRequest(ctx, "unknown", "method_not_allowed")
		return http.StatusMethodNotAllowed, &graphql.Result{Errors: gqlerrors.FormatErrors(errors.New("mutations require POST"))}
	}

	validation := graphql.ValidateDocument(&h.schema, doc, h.rules)
	if !validation.IsValid {
		observability.RecordGraphQLRequest(ctx, "unknown", "validation_error")
		return http.StatusBadRequest, &graphql.Result{Errors: validation.Errors}
	}

	label := operationLabel(op)
	middleware.AnnotateOperation(ctx, label)
	ctx, span := observability.Tracer().Start(ctx, "graphql."+label, trace.WithAttributes(
		attribute.String("graphql.operation.name", req.OperationName),
		attribute.String("graphql.operation.type", operationType(op)),
	))
	defer span.End()

	result := graphql.Execute(graphql.ExecuteParams{
		Schema:        h.schema,
		AST:           doc,
		OperationName: req.OperationName,
		Args:          req.Variables,
		Context:       ctx,
	})
	outcome := resultOutcome(result)
	if outcome != "success" {
		span.SetStatus(codes.Error, outcome)
	}
	observability.RecordGraphQLRequest(ctx, label, outcome)
	return http.StatusOK, result
}

func selectOperation(doc *ast.Document, name string) *ast.OperationDefinition {
	var only *ast.OperationDefinition
	count := 0
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		count++
		if name != "" && op.Name != nil && op.Name.Value == name {
			return op
		}
		only = op
	}
	if name == "" && count == 1 {
		return only
	}
	return nil
}

// operationLabel names an operation by its root fields so metric labels stay
// within the schema's field set.
func operationLabel(op *ast.OperationDefinition) string {
	if op == nil || op.SelectionSet == nil {
		return "unknown"
	}
	names := make([]string, 0, len(op.SelectionSet.Selections))
	for _, sel := range op.SelectionSet.Selections {
		if f, ok := sel.(*ast.Field); ok && f.Name != nil {
			names = append(names, f.Name.Value)
		}
	}
	switch len(names) {
	case 0:
		return "unknown"
	case 1:
		return names[0]
	default:
		return "batch"
	}
}

func operationType(op *ast.OperationDefinition) string {
	if op == nil {
		return ""
	}
	return op.Operation
}

func resultOutcome(result *graphql.Result) string {
	if len(result.Errors) == 0 {
		return "success"
	}
	if code, ok := result.Errors[0].Extensions["code"].(string); ok && code != "" {
		return strings.ToLower(code)
	}
	return "error"
}

func allowHeader(allowGET bool) string {
	if allowGET {
		return "GET, POST"
	}
	return http.MethodPost
}

func noIntrospectionRule(context *graphql.ValidationContext) *graphql.ValidationRuleInstance {
	return &graphql.ValidationRuleInstance{
		VisitorOpts: &visitor.VisitorOptions{
			KindFuncMap: map[string]visitor.NamedVisitFuncs{
				kinds.Field: {
					Kind: func(p visitor.VisitFuncParams) (string, interface{}) {
						field, ok := p.Node.(*ast.Field)
						if !ok || field.Name == nil {
							return visitor.ActionNoChange, nil
						}
						if field.Name.Value == "__schema" || field.Name.Value == "__type" {
							context.ReportError(gqlerrors.NewError(
								"GraphQL introspection is disabled",
								[]ast.Node{field},
								"",
								nil,
								[]int{},
								nil,
							))
						}
						return visitor.ActionNoChange, nil
					},
				},
			},
		},
	}
}
