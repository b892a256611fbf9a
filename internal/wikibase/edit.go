package wikibase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/popimport/internal/model"
)

const gregorian = "http://www.wikidata.org/entity/Q1985727"

type snakJSON struct {
	SnakType  string        `json:"snaktype"`
	Property  string        `json:"property"`
	DataValue dataValueJSON `json:"datavalue"`
}

type dataValueJSON struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

type referenceJSON struct {
	Snaks      map[string][]snakJSON `json:"snaks"`
	SnaksOrder []string              `json:"snaks-order"`
}

type statementJSON struct {
	MainSnak        snakJSON              `json:"mainsnak"`
	Type            string                `json:"type"`
	Rank            string                `json:"rank"`
	Qualifiers      map[string][]snakJSON `json:"qualifiers,omitempty"`
	QualifiersOrder []string              `json:"qualifiers-order,omitempty"`
	References      []referenceJSON       `json:"references,omitempty"`
}

func encodeValue(v model.Value) (dataValueJSON, error) {
	switch val := v.(type) {
	case model.QuantityValue:
		return dataValueJSON{Type: "quantity", Value: map[string]string{
			"amount": fmt.Sprintf("%+d", val.Amount),
			"unit":   "1",
		}}, nil
	case model.TimeValue:
		return dataValueJSON{Type: "time", Value: map[string]interface{}{
			"time":          val.Time.APIString(),
			"timezone":      0,
			"before":        0,
			"after":         0,
			"precision":     int(val.Time.Precision),
			"calendarmodel": gregorian,
		}}, nil
	case model.ItemValue:
		if !itemID.MatchString(val.ID) {
			return dataValueJSON{}, fmt.Errorf("invalid item id %q", val.ID)
		}
		numeric, _ := strconv.ParseInt(val.ID[1:], 10, 64)
		return dataValueJSON{Type: "wikibase-entityid", Value: map[string]interface{}{
			"entity-type": "item",
			"numeric-id":  numeric,
			"id":          val.ID,
		}}, nil
	case model.URLValue:
		return dataValueJSON{Type: "string", Value: val.URL}, nil
	default:
		return dataValueJSON{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func encodeSnak(s model.Snak) (snakJSON, error) {
	dv, err := encodeValue(s.Value)
	if err != nil {
		return snakJSON{}, fmt.Errorf("%s: %w", s.Property, err)
	}
	return snakJSON{SnakType: "value", Property: s.Property, DataValue: dv}, nil
}

// groupSnaks groups snaks by property, keeping first-seen property order
func groupSnaks(snaks []model.Snak) (map[string][]snakJSON, []string, error) {
	grouped := make(map[string][]snakJSON)
	var order []string
	for _, s := range snaks {
		enc, err := encodeSnak(s)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := grouped[s.Property]; !seen {
			order = append(order, s.Property)
		}
		grouped[s.Property] = append(grouped[s.Property], enc)
	}
	return grouped, order, nil
}

// EncodeDraft renders a draft as a Wikibase statement JSON object
func EncodeDraft(draft model.StatementDraft) ([]byte, error) {
	mainSnak, err := encodeSnak(model.Snak{Property: draft.Property, Value: draft.Value})
	if err != nil {
		return nil, err
	}

	st := statementJSON{MainSnak: mainSnak, Type: "statement", Rank: "normal"}

	if len(draft.Qualifiers) > 0 {
		st.Qualifiers, st.QualifiersOrder, err = groupSnaks(draft.Qualifiers)
		if err != nil {
			return nil, err
		}
	}

	if len(draft.References) > 0 {
		snaks, order, err := groupSnaks(draft.References)
		if err != nil {
			return nil, err
		}
		st.References = []referenceJSON{{Snaks: snaks, SnaksOrder: order}}
	}

	return json.Marshal(st)
}

type editResponse struct {
	Entity struct {
		ID        string                    `json:"id"`
		LastRevID int64                     `json:"lastrevid"`
		Claims    map[string][]apiStatement `json:"claims"`
	} `json:"entity"`
	Success int `json:"success"`
}

// SubmitStatement creates the drafted statement, with its qualifiers and
// reference, on ref in a single edit.
func (c *Client) SubmitStatement(ctx context.Context, ref model.EntityRef, draft model.StatementDraft) (model.SubmitResult, error) {
	stJSON, err := EncodeDraft(draft)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("encode statement: %w", err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return model.SubmitResult{}, err
	}

	params := url.Values{
		"action":  {"wbeditentity"},
		"id":      {ref.ID},
		"data":    {`{"claims":[` + string(stJSON) + `]}`},
		"token":   {token},
		"bot":     {"1"},
		"summary": {c.cfg.EditSummary},
	}
	if c.cfg.MaxLag > 0 {
		params.Set("maxlag", strconv.Itoa(c.cfg.MaxLag))
	}

	var resp editResponse
	if err := c.apiPost(ctx, params, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code == "badtoken" || apiErr.Code == "assertuserfailed") {
			c.invalidateToken()
		}
		return model.SubmitResult{}, fmt.Errorf("edit %s: %w", ref.ID, err)
	}
	if resp.Success != 1 {
		return model.SubmitResult{}, fmt.Errorf("edit %s: not acknowledged", ref.ID)
	}

	result := model.SubmitResult{RevisionID: resp.Entity.LastRevID}
	if claims := resp.Entity.Claims[draft.Property]; len(claims) > 0 {
		result.StatementID = claims[len(claims)-1].ID
	}

	c.logger.Debug("statement created",
		zap.String("entity", ref.ID),
		zap.String("statement", result.StatementID),
		zap.Int64("revision", result.RevisionID))
	return result, nil
}
