package esagg

import (
	"github.com/hatlonely/esagg/aggregation"
	"github.com/hatlonely/esagg/client"
	"github.com/hatlonely/esagg/filter"
	"github.com/hatlonely/esagg/response"
)

var (
	ErrInvalidFilterKind        = filter.ErrInvalidFilterKind
	ErrInvalidFilterConfig      = filter.ErrInvalidFilterConfig
	ErrInvalidAggregationKind   = aggregation.ErrInvalidAggregationKind
	ErrInvalidAggregationConfig = aggregation.ErrInvalidAggregationConfig
	ErrMissingAggregations      = response.ErrMissingAggregations
	ErrMalformedBucket          = response.ErrMalformedBucket
	ErrSearchFailed             = client.ErrSearchFailed
)
