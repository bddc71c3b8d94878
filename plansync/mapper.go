package plansync

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mmdatafocus/production_backend/models"
	"github.com/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
)

var requiredTextKeys = []string{"PRODUTO", "NARRATIVA", "GRUPO", "ESTAGIO", "ESTAGIO_POSICAO"}

// mapFeedItem turns one feed item into the shape the merge understands.
func mapFeedItem(index int, raw json.RawMessage) (*models.ExternalOrder, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &RecordMappingError{Index: index, Field: "item", Reason: "is not an object"}
	}

	opText, ok := textField(fields, "OP")
	if !ok {
		return nil, &RecordMappingError{Index: index, Field: "OP", Reason: "is missing"}
	}
	orderNumber, err := parseOrderNumber(opText)
	if err != nil {
		return nil, &RecordMappingError{Index: index, OrderNumber: opText, Field: "OP", Reason: "is not a positive integer"}
	}
	mappingErr := func(field, reason string) error {
		return &RecordMappingError{Index: index, OrderNumber: opText, Field: field, Reason: reason}
	}

	text := make(map[string]string, len(requiredTextKeys))
	for _, key := range requiredTextKeys {
		v, ok := textField(fields, key)
		if !ok {
			return nil, mappingErr(key, "is missing")
		}
		text[key] = v
	}
	if strings.TrimSpace(text["PRODUTO"]) == "" {
		return nil, mappingErr("PRODUTO", "is empty")
	}

	quantities := make(map[string]decimal.Decimal, 3)
	for _, key := range []string{"QTDE_PROGRAMADO", "QTDE_CARREGADO", "QTDE_PRODUZIDA"} {
		v, ok := textField(fields, key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil, mappingErr(key, "is missing")
		}
		d, err := utils.ParseDecimal(v)
		if err != nil {
			return nil, mappingErr(key, "is not a number")
		}
		if d.IsNegative() {
			return nil, mappingErr(key, "is negative")
		}
		quantities[key] = d
	}

	unit, _ := textField(fields, "UM")
	unit = strings.TrimSpace(unit)
	if unit == "" {
		unit = models.DefaultUnit
	}
	machineCode, _ := textField(fields, "MAQUINA_OP")
	note, _ := textField(fields, "OBS")

	var payload bytes.Buffer
	if err := json.Compact(&payload, raw); err != nil {
		payload.Reset()
	}

	return &models.ExternalOrder{
		OrderNumber:   orderNumber,
		Product:       strings.TrimSpace(text["PRODUTO"]),
		Description:   strings.TrimSpace(text["NARRATIVA"]),
		ProductGroup:  strings.TrimSpace(text["GRUPO"]),
		ProgrammedQty: quantities["QTDE_PROGRAMADO"],
		ReleasedQty:   quantities["QTDE_CARREGADO"],
		ProducedQty:   quantities["QTDE_PRODUZIDA"],
		Unit:          unit,
		Stage:         strings.TrimSpace(text["ESTAGIO"]),
		StagePosition: strings.TrimSpace(text["ESTAGIO_POSICAO"]),
		MachineCode:   strings.TrimSpace(machineCode),
		Note:          note,
		Payload:       payload.Bytes(),
	}, nil
}

// textField reads a string or number value as text. A null value reads as empty.
func textField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return "", true
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9'):
		return string(trimmed), true
	}
	return "", false
}

func parseOrderNumber(s string) (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1<<31-1)) {
		return 0, errNotPositiveInteger
	}
	return int(d.IntPart()), nil
}
