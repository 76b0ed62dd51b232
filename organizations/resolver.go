package organizations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-iam-server/auth"
)

// Source records which part of the request produced the organization id.
type Source string

const (
	SourceAudience    Source = "audience"
	SourceBearerToken Source = "bearer_token"
	SourceQuery       Source = "query"
	SourceBody        Source = "body"
	SourcePath        Source = "path"
)

const organizationIDParam = "organization_id"

type Resolution struct {
	OrganizationID string
	Source         Source
}

// ResolverInput is everything the resolver looks at. It is built once per request.
type ResolverInput struct {
	Audience            auth.Audience
	AuthorizationHeader string
	Method              string
	Query               url.Values
	Body                map[string]any
	Path                string
}

// DecodeError describes why a bearer token payload yielded no organization.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token decode: %s: %v", e.Reason, e.Err)
	}
	return "token decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ResolveOrganizationID returns the organization a request is scoped to. The
// first matching source wins. A false result means the request is not
// organization scoped.
func ResolveOrganizationID(in ResolverInput) (Resolution, bool) {
	if aud, ok := in.Audience.Single(); ok {
		if id, ok := organizationFromURN(aud); ok {
			return Resolution{OrganizationID: id, Source: SourceAudience}, true
		}
	}

	if in.AuthorizationHeader != "" {
		if id, err := OrganizationFromBearer(in.AuthorizationHeader); err == nil {
			return Resolution{OrganizationID: id, Source: SourceBearerToken}, true
		}
	}

	if in.Method == http.MethodGet {
		if id := in.Query.Get(organizationIDParam); id != "" {
			return Resolution{OrganizationID: id, Source: SourceQuery}, true
		}
	} else if id, ok := in.Body[organizationIDParam].(string); ok && id != "" {
		return Resolution{OrganizationID: id, Source: SourceBody}, true
	}

	if id, ok := organizationFromPath(in.Path); ok {
		return Resolution{OrganizationID: id, Source: SourcePath}, true
	}
	return Resolution{}, false
}

// OrganizationFromBearer reads the aud claim of a bearer token without checking
// its signature. Every failure is returned as a *DecodeError.
func OrganizationFromBearer(header string) (string, error) {
	raw, ok := auth.ExtractBearerToken(header)
	if !ok {
		return "", &DecodeError{Reason: "not a bearer header"}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", &DecodeError{Reason: "malformed token", Err: err}
	}

	aud, ok := claims["aud"].(string)
	if !ok {
		return "", &DecodeError{Reason: "audience is not a string"}
	}
	id, ok := organizationFromURN(aud)
	if !ok {
		return "", &DecodeError{Reason: "audience is not an organization urn"}
	}
	return id, nil
}

func organizationFromURN(aud string) (string, bool) {
	id, ok := strings.CutPrefix(aud, URNPrefix)
	return id, ok && id != ""
}

func organizationFromPath(path string) (string, bool) {
	segments := strings.Split(path, "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "organizations" && segments[i+1] != "" {
			return segments[i+1], true
		}
	}
	return "", false
}

// InputFromRequest collects resolver input from an HTTP request. A JSON body is
// read up to maxBody bytes and put back so handlers can decode it again.
func InputFromRequest(r *http.Request, maxBody int64) ResolverInput {
	in := ResolverInput{
		AuthorizationHeader: r.Header.Get("Authorization"),
		Method:              r.Method,
		Query:               r.URL.Query(),
		Path:                r.URL.Path,
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		in.Audience = p.Audience
	}
	if r.Method != http.MethodGet && r.Body != nil && isJSON(r.Header.Get("Content-Type")) {
		in.Body = readJSONBody(r, maxBody)
	}
	return in
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// readJSONBody reads at most maxBody bytes for inspection and puts them back in
// front of the unread remainder. A body longer than maxBody yields nil.
func readJSONBody(r *http.Request, maxBody int64) map[string]any {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(data), r.Body), Closer: r.Body}
	if err != nil || len(data) == 0 || int64(len(data)) > maxBody {
		return nil
	}
	body := map[string]any{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body
}

type replayBody struct {
	io.Reader
	io.Closer
}
