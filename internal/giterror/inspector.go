package giterror

import (
	"errors"
	"strings"
)

// Inspector classifies errors returned by the GitHub REST and GraphQL APIs.
type Inspector interface {
	// IsAuthError returns true if the error represents an authentication failure.
	IsAuthError(err error) bool

	// IsForbiddenError returns true if the error carries a 403 or equivalent.
	// A forbidden error may still be a rate limit; check IsRateLimitError first.
	IsForbiddenError(err error) bool

	// IsNotFoundError returns true if the repository or resource does not exist.
	IsNotFoundError(err error) bool

	// IsRateLimitError returns true if a primary or secondary quota was hit.
	IsRateLimitError(err error) bool

	// IsQueryRejectedError returns true if GitHub refused the search predicate.
	IsQueryRejectedError(err error) bool

	// IsNetworkError returns true if the request never got an HTTP answer.
	IsNetworkError(err error) bool
}

// Category is the failure class an error message falls into.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryRateLimit
	CategoryAuth
	CategoryForbidden
	CategoryNotFound
	CategoryQueryRejected
	CategoryNetwork
)

func (c Category) String() string {
	switch c {
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryAuth:
		return "auth"
	case CategoryForbidden:
		return "forbidden"
	case CategoryNotFound:
		return "not_found"
	case CategoryQueryRejected:
		return "query_rejected"
	case CategoryNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// patterns are matched against the lower-cased error text. GraphQL errors
// reach us only as strings, so these are the sole signal for them.
var patterns = map[Category][]string{
	CategoryRateLimit: {
		"rate limit", "rate_limited", "429", "secondary rate", "abuse detection",
	},
	CategoryAuth: {
		"401", "unauthorized", "bad credentials", "authentication",
	},
	CategoryForbidden: {
		"403", "forbidden", "resource not accessible", "saml",
	},
	CategoryNotFound: {
		"404", "not found", "could not resolve to a repository",
	},
	CategoryQueryRejected: {
		"422", "validation failed", "cannot be searched", "invalid search query",
	},
	CategoryNetwork: {
		"connection refused", "connection reset", "no such host", "timeout",
		"temporary failure", "dial tcp", "tls handshake", "network is unreachable", "eof",
	},
}

// precedence is the order Classify tries categories in. Rate limits come
// first because GitHub reports them with a 403.
var precedence = []Category{
	CategoryRateLimit,
	CategoryAuth,
	CategoryNotFound,
	CategoryQueryRejected,
	CategoryForbidden,
	CategoryNetwork,
}

func matches(err error, c Category) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns[c] {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// GitHubErrorInspector classifies errors by their message text.
type GitHubErrorInspector struct{}

// NewInspector creates a new GitHubErrorInspector.
func NewInspector() Inspector {
	return &GitHubErrorInspector{}
}

func (i *GitHubErrorInspector) IsAuthError(err error) bool {
	return matches(err, CategoryAuth)
}

func (i *GitHubErrorInspector) IsForbiddenError(err error) bool {
	return matches(err, CategoryForbidden)
}

func (i *GitHubErrorInspector) IsNotFoundError(err error) bool {
	return matches(err, CategoryNotFound)
}

func (i *GitHubErrorInspector) IsRateLimitError(err error) bool {
	return matches(err, CategoryRateLimit)
}

func (i *GitHubErrorInspector) IsQueryRejectedError(err error) bool {
	return matches(err, CategoryQueryRejected)
}

func (i *GitHubErrorInspector) IsNetworkError(err error) bool {
	return matches(err, CategoryNetwork)
}

// Classify returns the first category in precedence order that in reports
// for err.
func Classify(in Inspector, err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	checks := map[Category]func(error) bool{
		CategoryRateLimit:     in.IsRateLimitError,
		CategoryAuth:          in.IsAuthError,
		CategoryForbidden:     in.IsForbiddenError,
		CategoryNotFound:      in.IsNotFoundError,
		CategoryQueryRejected: in.IsQueryRejectedError,
		CategoryNetwork:       in.IsNetworkError,
	}
	for _, c := range precedence {
		if checks[c](err) {
			return c
		}
	}
	return CategoryUnknown
}

// ErrorChainInspector consults typed markers in the error chain (an
// IsRateLimitError() bool method, and so on) before falling back to its
// base inspector.
type ErrorChainInspector struct {
	base Inspector
}

// NewErrorChainInspector wraps base.
func NewErrorChainInspector(base Inspector) Inspector {
	return &ErrorChainInspector{base: base}
}

// marked reports whether some error in the chain implements M and says yes.
func marked[M any](err error, says func(M) bool) bool {
	var m M
	return errors.As(err, &m) && says(m)
}

func (e *ErrorChainInspector) IsAuthError(err error) bool {
	return marked(err, func(m interface{ IsAuthError() bool }) bool { return m.IsAuthError() }) ||
		e.base.IsAuthError(err)
}

func (e *ErrorChainInspector) IsForbiddenError(err error) bool {
	return marked(err, func(m interface{ IsForbiddenError() bool }) bool { return m.IsForbiddenError() }) ||
		e.base.IsForbiddenError(err)
}

func (e *ErrorChainInspector) IsNotFoundError(err error) bool {
	return marked(err, func(m interface{ IsNotFoundError() bool }) bool { return m.IsNotFoundError() }) ||
		e.base.IsNotFoundError(err)
}

func (e *ErrorChainInspector) IsRateLimitError(err error) bool {
	return marked(err, func(m interface{ IsRateLimitError() bool }) bool { return m.IsRateLimitError() }) ||
		e.base.IsRateLimitError(err)
}

func (e *ErrorChainInspector) IsQueryRejectedError(err error) bool {
	return marked(err, func(m interface{ IsQueryRejectedError() bool }) bool { return m.IsQueryRejectedError() }) ||
		e.base.IsQueryRejectedError(err)
}

func (e *ErrorChainInspector) IsNetworkError(err error) bool {
	return marked(err, func(m interface{ IsNetworkError() bool }) bool { return m.IsNetworkError() }) ||
		e.base.IsNetworkError(err)
}
