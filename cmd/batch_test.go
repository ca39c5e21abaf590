package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/circulars-cli/internal/model"
)

func TestProcessBatch_Sequential(t *testing.T) {
	list := []model.Target{
		{Category: "SEBI", URL: "https://a"},
		{Category: "RBI", URL: "https://b"},
		{Category: "NSE", URL: "https://c"},
	}

	var order []string
	code := processBatch(context.Background(), list, func(_ context.Context, target model.Target) (string, *model.RunResult, error) {
		order = append(order, target.Category)
		return "run-" + target.Category, sampleResult(), nil
	})

	assert.Equal(t, model.ExitOK, code)
	assert.Equal(t, []string{"SEBI", "RBI", "NSE"}, order)
}

func TestProcessBatch_WorstStatus(t *testing.T) {
	list := []model.Target{{Category: "A", URL: "u"}, {Category: "B", URL: "u"}, {Category: "C", URL: "u"}}

	results := map[string]*model.RunResult{
		"A": sampleResult(),
		"B": {Records: sampleResult().Records, Errors: []string{"attempt 1: timeout"}},
	}
	var calls int
	code := processBatch(context.Background(), list, func(_ context.Context, target model.Target) (string, *model.RunResult, error) {
		calls++
		if target.Category == "C" {
			return "", nil, errors.New("store unavailable")
		}
		return "id", results[target.Category], nil
	})

	assert.Equal(t, 3, calls, "a failed target does not stop the batch")
	assert.Equal(t, model.ExitWithError, code)
}

func TestProcessBatch_NoRecordsAnywhere(t *testing.T) {
	list := []model.Target{{Category: "A", URL: "u"}}
	code := processBatch(context.Background(), list, func(context.Context, model.Target) (string, *model.RunResult, error) {
		return "id", &model.RunResult{}, nil
	})
	assert.Equal(t, model.ExitNoRecords, code)
}

func TestProcessBatch_Empty(t *testing.T) {
	code := processBatch(context.Background(), nil, func(context.Context, model.Target) (string, *model.RunResult, error) {
		t.Fatal("should not run")
		return "", nil, nil
	})
	assert.Equal(t, model.ExitNoRecords, code)
}

func TestProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	list := []model.Target{{Category: "A", URL: "u"}, {Category: "B", URL: "u"}}

	var calls int
	code := processBatch(ctx, list, func(context.Context, model.Target) (string, *model.RunResult, error) {
		calls++
		cancel()
		return "id", sampleResult(), nil
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, model.ExitWithError, code)
}
