package wikibase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/popimport/internal/model"
)

// apiEntity is the subset of a wbgetentities entity that is read
type apiEntity struct {
	ID      string                    `json:"id"`
	Title   string                    `json:"title"`
	Missing *string                   `json:"missing"`
	Claims  map[string][]apiStatement `json:"claims"`
}

type apiStatement struct {
	ID         string               `json:"id"`
	MainSnak   apiSnak              `json:"mainsnak"`
	Qualifiers map[string][]apiSnak `json:"qualifiers"`
}

type apiSnak struct {
	SnakType  string        `json:"snaktype"`
	Property  string        `json:"property"`
	DataValue *apiDataValue `json:"datavalue"`
}

type apiDataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type apiTime struct {
	Time      string `json:"time"`
	Precision int    `json:"precision"`
}

type apiQuantity struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// getEntities fetches ids with the given props ("info", "claims", ...)
func (c *Client) getEntities(ctx context.Context, ids []string, props string) (map[string]apiEntity, error) {
	var resp struct {
		Entities map[string]apiEntity `json:"entities"`
	}
	err := c.apiGet(ctx, url.Values{
		"action": {"wbgetentities"},
		"ids":    {strings.Join(ids, "|")},
		"props":  {props},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	return resp.Entities, nil
}

// Statements returns the statements of ref for property, each carrying
// its point-in-time qualifier values. A property without statements
// yields an empty slice.
func (c *Client) Statements(ctx context.Context, ref model.EntityRef, property string) ([]model.Statement, error) {
	entities, err := c.getEntities(ctx, []string{ref.ID}, "claims")
	if err != nil {
		return nil, err
	}

	ent, found := entities[ref.ID]
	if !found || ent.Missing != nil {
		return nil, fmt.Errorf("%s: %w", ref.ID, ErrEntityMissing)
	}

	var out []model.Statement
	for _, st := range ent.Claims[property] {
		out = append(out, c.convertStatement(st))
	}
	return out, nil
}

func (c *Client) convertStatement(st apiStatement) model.Statement {
	out := model.Statement{
		ID:       st.ID,
		Property: st.MainSnak.Property,
	}

	if dv := st.MainSnak.DataValue; dv != nil && dv.Type == "quantity" {
		var q apiQuantity
		if err := json.Unmarshal(dv.Value, &q); err == nil {
			out.Amount = q.Amount
		}
	}

	for _, snak := range st.Qualifiers[model.PropPointInTime] {
		if snak.SnakType != "value" || snak.DataValue == nil || snak.DataValue.Type != "time" {
			continue
		}
		var tv apiTime
		if err := json.Unmarshal(snak.DataValue.Value, &tv); err != nil {
			continue
		}
		wt, err := model.ParseTimestr(tv.Time, model.Precision(tv.Precision))
		if err != nil {
			c.logger.Debug("unparseable qualifier time",
				zap.String("statement", st.ID), zap.String("time", tv.Time))
			continue
		}
		out.Times = append(out.Times, wt)
	}

	return out
}
