package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thisisjab/docquery/entity"
	"github.com/thisisjab/docquery/fault"
	"github.com/thisisjab/docquery/query/parser"
	"github.com/thisisjab/docquery/search"
	"github.com/thisisjab/docquery/storage"
)

type evaluateRequest struct {
	Query    string `json:"query"`
	Document string `json:"document"`
	// Source names the document in recorded verdicts.
	Source     string `json:"source"`
	IgnoreCase *bool  `json:"ignore_case"`
	Strict     *bool  `json:"strict"`
}

func (req evaluateRequest) validate() error {
	fields := fault.FieldErrorsMetadata{}
	if req.Query == "" {
		fields["query"] = []string{"Query cannot be empty."}
	}

	if len(fields) > 0 {
		return fault.New(fault.BadInputCode, "Request is invalid.").WithMetadata(fields)
	}

	return nil
}

func (s *server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	if s.returnOnError(w, r, req.validate()) {
		return
	}

	opts := s.services.Search
	// Trees are never printed on behalf of a request.
	opts.ShowTree = false
	if req.IgnoreCase != nil {
		opts.IgnoreCase = *req.IgnoreCase
	}
	if req.Strict != nil {
		opts.Strict = *req.Strict
	}

	searcher, err := search.New(s.logger, s.services.Matcher, opts)
	if s.returnOnError(w, r, err) {
		return
	}

	start := time.Now()
	res, err := searcher.Search(r.Context(), req.Query, req.Document)
	if s.returnOnError(w, r, err) {
		return
	}

	verdict := entity.Verdict{
		ID:          uuid.New(),
		Query:       req.Query,
		Source:      req.Source,
		Result:      res.Verdict,
		Lookups:     res.Lookups,
		Duration:    time.Since(start),
		EvaluatedAt: start,
	}

	if s.services.Recorder != nil {
		s.services.Recorder.Add(r.Context(), verdict)
	}

	s.writeJson( // nolint:errcheck
		w,
		http.StatusOK,
		apiResponse{
			Success: true,
			Message: search.FormatVerdict(res.Verdict),
			Data: map[string]any{
				"id":      verdict.ID,
				"verdict": res.Verdict,
				"lookups": res.Lookups,
				"steps":   res.Steps,
			},
		},
		nil,
	)
}

type parseRequest struct {
	Query  string `json:"query"`
	Strict *bool  `json:"strict"`
}

func (s *server) parseHandler(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	strict := s.services.Search.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}

	root, issues, err := parser.Parse(req.Query, strict)
	if s.returnOnError(w, r, err) {
		return
	}

	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Error())
	}

	s.writeJson( // nolint:errcheck
		w,
		http.StatusOK,
		apiResponse{
			Success: true,
			Data: map[string]any{
				"tree":   root.String(),
				"terms":  root.Terms(),
				"size":   root.Size(),
				"issues": messages,
			},
		},
		nil,
	)
}

const defaultVerdictLimit = 100

// parseVerdictFilter reads a filter from query parameters such as
// ?start=2026-01-02T15:04:05Z&result=true&sort=-lookups,source&limit=50.
func parseVerdictFilter(r *http.Request) (storage.VerdictFilter, error) {
	q := r.URL.Query()
	fields := fault.FieldErrorsMetadata{}
	filter := storage.VerdictFilter{
		Source: q.Get("source"),
		Limit:  defaultVerdictLimit,
	}

	for name, dst := range map[string]*time.Time{"start": &filter.Start, "end": &filter.End} {
		if v := q.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				fields[name] = []string{"Expected an RFC3339 timestamp."}
				continue
			}
			*dst = t
		}
	}

	if v := q.Get("result"); v != "" {
		result, err := strconv.ParseBool(v)
		if err != nil {
			fields["result"] = []string{"Expected a boolean."}
		} else {
			filter.Result = &result
		}
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			fields["limit"] = []string{"Expected an integer."}
		} else {
			filter.Limit = limit
		}
	}

	if v := q.Get("sort"); v != "" {
		for _, name := range strings.Split(v, ",") {
			desc := strings.HasPrefix(name, "-")
			filter.Sort = append(filter.Sort, storage.SortField{Name: strings.TrimPrefix(name, "-"), IsDescending: desc})
		}
	}

	if len(fields) > 0 {
		return filter, fault.New(fault.BadInputCode, "Filter is invalid.").WithMetadata(fields)
	}

	return filter, filter.Validate()
}

func (s *server) listVerdictsHandler(w http.ResponseWriter, r *http.Request) {
	if s.services.History == nil {
		s.handleError(w, r, fault.New(fault.NotFoundCode, "Verdict history is not enabled."))
		return
	}

	filter, err := parseVerdictFilter(r)
	if s.returnOnError(w, r, err) {
		return
	}

	verdicts, err := s.services.History.ListVerdicts(r.Context(), filter)
	if s.returnOnError(w, r, err) {
		return
	}

	s.writeJson( // nolint:errcheck
		w,
		http.StatusOK,
		apiResponse{
			Success:  true,
			Data:     map[string]any{"verdicts": verdicts},
			Metadata: map[string]any{"count": len(verdicts)},
		},
		nil,
	)
}
