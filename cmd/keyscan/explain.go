package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ridge/keystone/filter"
	"github.com/ridge/keystone/model"
	"github.com/ridge/keystone/store"
	"github.com/ridge/keystone/tlog"
	"go.uber.org/zap"
)

func parseHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// explain logs the plan of a request
func explain(ctx context.Context, kind *model.Kind, req store.Request) error {
	plan, err := store.NewPlan(kind, req)
	if err != nil {
		return err
	}
	var fields []string
	for _, f := range filter.Fields(req.Filter) {
		fields = append(fields, f.DBName)
	}
	logger := tlog.Get(ctx)
	logger.Info("Filter", zap.String("filter", filter.Describe(req.Filter)), zap.Strings("fields", fields), zap.Stringer("kind", kind))
	logger.Info("Key ranges", zap.Object("key", plan.Key))
	if req.Index != "" {
		ir, err := kind.CompileIndex(req.Index, req.Filter, plan.Key)
		if err != nil {
			return err
		}
		logger.Info("Index ranges", zap.String("index", req.Index), zap.Object("ranges", ir))
	}
	logger.Info("Plan", zap.Object("request", req), zap.Object("plan", plan), zap.Bool("empty", plan.IsEmpty()))
	return nil
}

// scan writes the records matching a request to w as JSON lines, each with
// its hex primary key
func scan(ctx context.Context, kind *model.Kind, s store.Store, req store.Request, w io.Writer) error {
	enc := json.NewEncoder(w)
	var n int
	var writeErr error
	err := s.Scan(ctx, kind, req, func(key []byte, obj any) bool {
		n++
		writeErr = enc.Encode(struct {
			Key    string `json:"key"`
			Record any    `json:"record"`
		}{Key: hex.EncodeToString(key), Record: obj})
		return writeErr == nil
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return fmt.Errorf("writing records: %w", writeErr)
	}
	tlog.Get(ctx).Debug("Scan done", zap.Int("records", n))
	return nil
}
