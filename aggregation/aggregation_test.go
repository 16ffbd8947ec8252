package aggregation

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func mustSteps(builders ...func(index int) (*Step, error)) Steps {
	var steps Steps
	for _, b := range builders {
		step, err := b(steps.Next())
		So(err, ShouldBeNil)
		steps = append(steps, step)
	}
	return steps
}

func agg(kind string, config any) func(int) (*Step, error) {
	return func(index int) (*Step, error) { return New(kind, config, index) }
}

func stats(fields ...any) func(int) (*Step, error) {
	return func(index int) (*Step, error) { return NewStats(fields, index) }
}

func metric(kind string, config any) func(int) (*Step, error) {
	return func(index int) (*Step, error) { return NewMetric(kind, config, index) }
}

func TestStepKey(t *testing.T) {
	Convey("测试步骤键", t, func() {
		step, err := New("terms", "user", 3)
		So(err, ShouldBeNil)
		So(step.Key, ShouldEqual, "user_agg_3")
		So(step.Name, ShouldEqual, "user_agg")

		step, err = New("reverse_nested", nil, 2)
		So(err, ShouldBeNil)
		So(step.Key, ShouldEqual, "_parent_2")
		So(step.Name, ShouldEqual, ParentName)
		So(step.Name, ShouldNotEqual, "_parent")

		step, err = New("filter", map[string]any{"field": "tag", "subtype": "term", "condition": "ES"}, 1)
		So(err, ShouldBeNil)
		So(step.Key, ShouldEqual, "tag_filter_1")

		step, err = NewRaw("no_tag", map[string]any{"missing": map[string]any{"field": "tag"}}, 12)
		So(err, ShouldBeNil)
		So(step.Key, ShouldEqual, "no_tag_12")
		So(step.Name, ShouldEqual, "no_tag")

		So(StripSuffix("level1.name_agg_10"), ShouldEqual, "level1.name_agg")
		So(StripSuffix("no_suffix"), ShouldEqual, "no_suffix")
	})
}

func TestBuild(t *testing.T) {
	Convey("测试 terms + date_histogram + stats", t, func() {
		steps := mustSteps(
			agg("terms", "user"),
			agg("date_histogram", map[string]any{
				"field":         "post_date",
				"interval":      "60d",
				"min_doc_count": 1,
			}),
			stats("post_length"),
		)

		So(steps.Build(), ShouldResemble, map[string]any{
			"user_agg": map[string]any{
				"terms": map[string]any{"field": "user"},
				"aggs": map[string]any{
					"post_date_agg": map[string]any{
						"date_histogram": map[string]any{
							"field":         "post_date",
							"interval":      "60d",
							"min_doc_count": 1,
						},
						"aggs": map[string]any{
							"post_length_stats": map[string]any{
								"stats": map[string]any{"field": "post_length"},
							},
						},
					},
				},
			},
		})
	})

	Convey("测试 histogram + filter + 多类型统计", t, func() {
		steps := mustSteps(
			agg("histogram", map[string]any{
				"field":           "post_length",
				"interval":        25,
				"extended_bounds": map[string]any{"min": 0, "max": 250},
			}),
			agg("filter", map[string]any{
				"field":     "tag",
				"subtype":   "term",
				"condition": "ES",
			}),
			stats(
				map[string]any{"type": "avg", "field": "num_of_tags"},
				StatSpec{Field: "num_of_tags", Type: "max"},
			),
		)

		So(steps.Build(), ShouldResemble, map[string]any{
			"post_length_agg": map[string]any{
				"histogram": map[string]any{
					"field":           "post_length",
					"interval":        25,
					"min_doc_count":   0,
					"extended_bounds": map[string]any{"min": 0, "max": 250},
				},
				"aggs": map[string]any{
					"tag_filter": map[string]any{
						"filter": map[string]any{
							"term": map[string]any{"tag": "ES"},
						},
						"aggs": map[string]any{
							"num_of_tags_avg": map[string]any{"avg": map[string]any{"field": "num_of_tags"}},
							"num_of_tags_max": map[string]any{"max": map[string]any{"field": "num_of_tags"}},
						},
					},
				},
			},
		})
	})

	Convey("测试 nested + reverse_nested", t, func() {
		steps := mustSteps(
			agg("nested", "level1"),
			agg("terms", map[string]any{"field": "level1.name", "size": 10}),
			stats("level1.value"),
			agg("reverse_nested", nil),
			agg("nested", "level2"),
			agg("terms", map[string]any{"field": "level2.name", "size": 20}),
			stats("level2.value"),
		)

		So(steps.Build(), ShouldResemble, map[string]any{
			"level1_agg": map[string]any{
				"nested": map[string]any{"path": "level1"},
				"aggs": map[string]any{
					"level1.name_agg": map[string]any{
						"terms": map[string]any{"field": "level1.name", "size": 10},
						"aggs": map[string]any{
							"level1.value_stats": map[string]any{
								"stats": map[string]any{"field": "level1.value"},
							},
							"parent": map[string]any{
								"reverse_nested": map[string]any{},
								"aggs": map[string]any{
									"level2_agg": map[string]any{
										"nested": map[string]any{"path": "level2"},
										"aggs": map[string]any{
											"level2.name_agg": map[string]any{
												"terms": map[string]any{"field": "level2.name", "size": 20},
												"aggs": map[string]any{
													"level2.value_stats": map[string]any{
														"stats": map[string]any{"field": "level2.value"},
													},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		})
	})

	Convey("测试同字段多个 metric 的序号", t, func() {
		steps := mustSteps(
			agg("terms", "user"),
			metric("avg", "x"),
			metric("max", "x"),
			metric("cardinality", map[string]any{"field": "y", "precision_threshold": 100}),
		)

		So(steps.Build(), ShouldResemble, map[string]any{
			"user_agg": map[string]any{
				"terms": map[string]any{"field": "user"},
				"aggs": map[string]any{
					"x_metric_1": map[string]any{"avg": map[string]any{"field": "x"}},
					"x_metric_2": map[string]any{"max": map[string]any{"field": "x"}},
					"y_metric": map[string]any{
						"cardinality": map[string]any{"field": "y", "precision_threshold": 100},
					},
				},
			},
		})
	})

	Convey("测试嵌套深度", t, func() {
		steps := mustSteps(
			agg("terms", "a"),
			agg("terms", "b"),
			agg("terms", "c"),
			stats("d"),
		)
		So(Depth(steps.Build()), ShouldEqual, 4)
		So(Depth(nil), ShouldEqual, 0)
		So(Steps(nil).Build(), ShouldBeNil)
	})

	Convey("测试 raw 步骤", t, func() {
		steps := mustSteps(
			func(index int) (*Step, error) {
				return NewRaw("no_tag", map[string]any{"missing": map[string]any{"field": "tag"}}, index)
			},
			agg("terms", "user"),
		)
		So(steps.Build(), ShouldResemble, map[string]any{
			"no_tag": map[string]any{
				"missing": map[string]any{"field": "tag"},
				"aggs": map[string]any{
					"user_agg": map[string]any{"terms": map[string]any{"field": "user"}},
				},
			},
		})
	})

	Convey("Build 不修改步骤", t, func() {
		steps := mustSteps(agg("terms", "a"), agg("terms", "b"))
		steps.Build()
		_, ok := steps[0].Body["aggs"]
		So(ok, ShouldBeFalse)
	})
}

func TestGenerateRanges(t *testing.T) {
	Convey("测试区间生成", t, func() {
		clauses, err := GenerateRanges([]any{20, 10})
		So(err, ShouldBeNil)
		So(clauses, ShouldResemble, []RangeClause{
			{Label: "*-10", Condition: map[string]any{"lte": 10}},
			{Label: "10-20", Condition: map[string]any{"gt": 10, "lte": 20}},
			{Label: "20-*", Condition: map[string]any{"gt": 20}},
		})

		clauses, err = GenerateRanges([]any{100, 5, 10})
		So(err, ShouldBeNil)
		labels := make([]string, 0, len(clauses))
		for _, clause := range clauses {
			labels = append(labels, clause.Label)
		}
		So(labels, ShouldResemble, []string{"*-5", "5-10", "10-100", "100-*"})

		_, err = GenerateRanges(nil)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)

		_, err = GenerateRanges([]any{"ten"})
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
	})

	Convey("测试 _generate 步骤", t, func() {
		step, err := New("_generate", map[string]any{
			"field":      "post_length",
			"boundaries": []int{10, 20},
		}, 1)
		So(err, ShouldBeNil)
		So(step.Name, ShouldEqual, "post_length_agg")
		So(step.Body, ShouldResemble, map[string]any{
			"filters": map[string]any{
				"filters": map[string]any{
					"*-10": map[string]any{
						"range": map[string]any{"post_length": map[string]any{"lte": 10}},
					},
					"10-20": map[string]any{
						"range": map[string]any{"post_length": map[string]any{"gt": 10, "lte": 20}},
					},
					"20-*": map[string]any{
						"range": map[string]any{"post_length": map[string]any{"gt": 20}},
					},
				},
			},
		})
	})
}

func TestInvalidAggregation(t *testing.T) {
	Convey("测试非法聚合", t, func() {
		_, err := New("no_such_aggregate", nil, 1)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationKind)

		for _, c := range []struct {
			kind   string
			config any
		}{
			{"terms", nil},
			{"terms", map[string]any{"size": 10}},
			{"histogram", "post_length"},
			{"nested", map[string]any{}},
			{"filter", map[string]any{"field": "tag"}},
			{"filters", "tag"},
			{"_generate", map[string]any{"field": "x"}},
			{"top_hits", "x"},
		} {
			_, err := New(c.kind, c.config, 1)
			So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
		}

		_, err = NewMetric("avg", nil, 1)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
		_, err = NewMetric("", "x", 1)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
		_, err = NewStats(nil, 1)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
		_, err = NewStats([]any{1}, 1)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
		_, err = NewRaw("", nil, 1)
		So(errors.Cause(err), ShouldEqual, ErrInvalidAggregationConfig)
	})
}

func TestTopHits(t *testing.T) {
	Convey("测试 top_hits", t, func() {
		step, err := New("top_hits", map[string]any{"field": "latest", "size": 1}, 2)
		So(err, ShouldBeNil)
		So(step.Key, ShouldEqual, "latest_agg_2")
		So(step.Body, ShouldResemble, map[string]any{"top_hits": map[string]any{"size": 1}})

		step, err = New("top_hits", nil, 1)
		So(err, ShouldBeNil)
		So(step.Name, ShouldEqual, "top_hits_agg")
	})
}
