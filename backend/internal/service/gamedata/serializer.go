package gamedata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	domain "sphere-game-data/backend/internal/domain/gamedata"
	"sphere-game-data/backend/internal/infra/validation"

	"gorm.io/datatypes"
)

// ErrMalformedBody 表示请求体不是合法 JSON。
var ErrMalformedBody = errors.New("JSON parse error")

// Payload 是一次写入请求解码后的字段集合，nil 表示请求中缺省或显式为 null。
type Payload struct {
	EventAt         *time.Time      `json:"event_at"`
	EventType       *string         `json:"event_type" validate:"omitempty,max=255"`
	EventCategory   *string         `json:"event_category" validate:"omitempty,max=255"`
	IPAddress       *string         `json:"ip_address" validate:"omitempty,ip"`
	MACAddress      *string         `json:"mac_address" validate:"omitempty,max=17"`
	SessionID       *string         `json:"session_id" validate:"omitempty,max=255"`
	GameReference   *string         `json:"game_reference" validate:"omitempty,max=255"`
	GameLevel       *int            `json:"game_level"`
	GameMode        *string         `json:"game_mode" validate:"omitempty,max=255"`
	GameColor       *string         `json:"game_color" validate:"omitempty,max=255"`
	CorrectColor    *string         `json:"correct_color" validate:"omitempty,max=255"`
	GameSequence    []string        `json:"game_sequence"`
	GamePlayerInput []string        `json:"game_player_input"`
	RetryCount      *int            `json:"retry_count" validate:"omitempty,min=0"`
	ErrorMessages   json.RawMessage `json:"error_messages"`
}

type fieldDecoder func(raw json.RawMessage, p *Payload) string

type fieldSpec struct {
	name     string
	required bool
	nullable bool
	decode   fieldDecoder
}

// payloadFields 按字段声明必填、可空与解码方式；id 与 created_at 为只读，不在其中。
var payloadFields = []fieldSpec{
	{name: "event_at", required: true, decode: func(raw json.RawMessage, p *Payload) string {
		return decodeDateTime(raw, &p.EventAt)
	}},
	{name: "event_type", required: true, decode: stringField(false, func(p *Payload) **string { return &p.EventType })},
	{name: "event_category", decode: stringField(false, func(p *Payload) **string { return &p.EventCategory })},
	{name: "ip_address", required: true, decode: stringField(false, func(p *Payload) **string { return &p.IPAddress })},
	{name: "mac_address", decode: stringField(false, func(p *Payload) **string { return &p.MACAddress })},
	{name: "session_id", required: true, decode: stringField(false, func(p *Payload) **string { return &p.SessionID })},
	{name: "game_reference", nullable: true, decode: stringField(true, func(p *Payload) **string { return &p.GameReference })},
	{name: "game_level", required: true, decode: intField(func(p *Payload) **int { return &p.GameLevel })},
	{name: "game_mode", required: true, decode: stringField(false, func(p *Payload) **string { return &p.GameMode })},
	{name: "game_color", nullable: true, decode: stringField(true, func(p *Payload) **string { return &p.GameColor })},
	{name: "correct_color", nullable: true, decode: stringField(true, func(p *Payload) **string { return &p.CorrectColor })},
	{name: "game_sequence", required: true, decode: stringListField(func(p *Payload) *[]string { return &p.GameSequence })},
	{name: "game_player_input", required: true, decode: stringListField(func(p *Payload) *[]string { return &p.GamePlayerInput })},
	{name: "retry_count", decode: intField(func(p *Payload) **int { return &p.RetryCount })},
	{name: "error_messages", decode: func(raw json.RawMessage, p *Payload) string {
		if kind := jsonKind(raw); kind != "list" {
			return listTypeMessage(kind)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return validation.MsgInvalid
		}
		p.ErrorMessages = compact.Bytes()
		return ""
	}},
}

// Decode 解析写入请求，一次性收集所有字段错误；未知字段被忽略。
// 空请求体按空对象处理。
func Decode(body []byte) (Payload, error) {
	var payload Payload

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, new(any)); err != nil {
		return payload, fmt.Errorf("%w - %v", ErrMalformedBody, err)
	}

	if kind := jsonKind(trimmed); kind != "dict" {
		return payload, validation.NewError(validation.FieldErrors{
			validation.NonFieldErrors: {fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", kind)},
		})
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return payload, fmt.Errorf("%w - %v", ErrMalformedBody, err)
	}

	fields := validation.FieldErrors{}
	for _, rule := range payloadFields {
		value, present := raw[rule.name]
		switch {
		case !present:
			if rule.required {
				fields.Add(rule.name, validation.MsgRequired)
			}
		case isNull(value):
			if !rule.nullable {
				fields.Add(rule.name, validation.MsgNull)
			}
		default:
			if msg := rule.decode(value, &payload); msg != "" {
				fields.Add(rule.name, msg)
			}
		}
	}

	if structErrs := validation.Struct(payload); structErrs != nil {
		fields.Merge(structErrs)
	}
	if len(fields) > 0 {
		return Payload{}, validation.NewError(fields)
	}
	return payload, nil
}

// Apply 以整条替换的方式把载荷写入实体：可选字段缺省时恢复默认值，id 与 created_at 不变。
func (p Payload) Apply(rec *domain.Record) {
	rec.EventAt = derefTime(p.EventAt).UTC()
	rec.EventType = derefString(p.EventType, "")
	rec.EventCategory = derefString(p.EventCategory, domain.DefaultEventCategory)
	rec.IPAddress = derefString(p.IPAddress, "")
	rec.MACAddress = derefString(p.MACAddress, domain.DefaultMACAddress)
	rec.SessionID = derefString(p.SessionID, "")
	rec.GameReference = cloneString(p.GameReference)
	rec.GameLevel = derefInt(p.GameLevel)
	rec.GameMode = derefString(p.GameMode, "")
	rec.GameColor = cloneString(p.GameColor)
	rec.CorrectColor = cloneString(p.CorrectColor)
	rec.GameSequence = encodeList(p.GameSequence)
	rec.GamePlayerInput = encodeList(p.GamePlayerInput)
	rec.RetryCount = derefInt(p.RetryCount)
	if len(p.ErrorMessages) == 0 {
		rec.ErrorMessages = datatypes.JSON("[]")
	} else {
		rec.ErrorMessages = datatypes.JSON(append([]byte(nil), p.ErrorMessages...))
	}
}

// Entry 是返回给客户端的事件记录。
type Entry struct {
	ID              uint            `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	EventAt         time.Time       `json:"event_at"`
	EventType       string          `json:"event_type"`
	EventCategory   string          `json:"event_category"`
	IPAddress       string          `json:"ip_address"`
	MACAddress      string          `json:"mac_address"`
	SessionID       string          `json:"session_id"`
	GameReference   *string         `json:"game_reference"`
	GameLevel       int             `json:"game_level"`
	GameMode        string          `json:"game_mode"`
	GameColor       *string         `json:"game_color"`
	CorrectColor    *string         `json:"correct_color"`
	GameSequence    []string        `json:"game_sequence"`
	GamePlayerInput []string        `json:"game_player_input"`
	RetryCount      int             `json:"retry_count"`
	ErrorMessages   json.RawMessage `json:"error_messages"`
}

// Encode 把实体转换为响应结构，时间统一为 UTC，空列表输出为 []。
func Encode(rec domain.Record) (Entry, error) {
	sequence, err := decodeList(rec.GameSequence)
	if err != nil {
		return Entry{}, fmt.Errorf("decode game_sequence: %w", err)
	}
	input, err := decodeList(rec.GamePlayerInput)
	if err != nil {
		return Entry{}, fmt.Errorf("decode game_player_input: %w", err)
	}

	messages := json.RawMessage("[]")
	if len(bytes.TrimSpace(rec.ErrorMessages)) > 0 && !isNull(json.RawMessage(rec.ErrorMessages)) {
		messages = json.RawMessage(append([]byte(nil), rec.ErrorMessages...))
	}

	return Entry{
		ID:              rec.ID,
		CreatedAt:       rec.CreatedAt.UTC(),
		EventAt:         rec.EventAt.UTC(),
		EventType:       rec.EventType,
		EventCategory:   rec.EventCategory,
		IPAddress:       rec.IPAddress,
		MACAddress:      rec.MACAddress,
		SessionID:       rec.SessionID,
		GameReference:   cloneString(rec.GameReference),
		GameLevel:       rec.GameLevel,
		GameMode:        rec.GameMode,
		GameColor:       cloneString(rec.GameColor),
		CorrectColor:    cloneString(rec.CorrectColor),
		GameSequence:    sequence,
		GamePlayerInput: input,
		RetryCount:      rec.RetryCount,
		ErrorMessages:   messages,
	}, nil
}

func stringField(allowBlank bool, target func(*Payload) **string) fieldDecoder {
	return func(raw json.RawMessage, p *Payload) string {
		value, ok := scalarString(raw)
		if !ok {
			return validation.MsgInvalidStr
		}
		value = strings.TrimSpace(value)
		if value == "" && !allowBlank {
			return validation.MsgBlank
		}
		*target(p) = &value
		return ""
	}
}

var trailingZeroDecimal = regexp.MustCompile(`\.0*$`)

func intField(target func(*Payload) **int) fieldDecoder {
	return func(raw json.RawMessage, p *Payload) string {
		text, ok := scalarString(raw)
		if !ok {
			return validation.MsgInvalidInt
		}
		text = trailingZeroDecimal.ReplaceAllString(strings.TrimSpace(text), "")
		parsed, err := strconv.Atoi(text)
		if err != nil {
			return validation.MsgInvalidInt
		}
		*target(p) = &parsed
		return ""
	}
}

func stringListField(target func(*Payload) *[]string) fieldDecoder {
	return func(raw json.RawMessage, p *Payload) string {
		if kind := jsonKind(raw); kind != "list" {
			return listTypeMessage(kind)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return validation.MsgInvalid
		}
		values := make([]string, 0, len(items))
		for _, item := range items {
			value, ok := scalarString(item)
			if !ok {
				return validation.MsgInvalidStr
			}
			values = append(values, value)
		}
		*target(p) = values
		return ""
	}
}

// dateTimeLayouts 覆盖带时区与不带时区的 ISO-8601 写法，日期与时间之间允许空格。
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

func decodeDateTime(raw json.RawMessage, target **time.Time) string {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return validation.MsgInvalidDate
	}
	text = strings.TrimSpace(text)
	for _, layout := range dateTimeLayouts {
		// 不带时区的写法按 UTC 解释。
		if parsed, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			utc := parsed.UTC()
			*target = &utc
			return ""
		}
	}
	return validation.MsgInvalidDate
}

// scalarString 接受 JSON 字符串或数字，数字按原文返回。
func scalarString(raw json.RawMessage) (string, bool) {
	switch jsonKind(raw) {
	case "str":
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return "", false
		}
		return value, true
	case "int", "float":
		return string(bytes.TrimSpace(raw)), true
	default:
		return "", false
	}
}

// jsonKind 返回与客户端错误提示一致的类型名。
func jsonKind(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "NoneType"
	}
	switch trimmed[0] {
	case '"':
		return "str"
	case '[':
		return "list"
	case '{':
		return "dict"
	case 't', 'f':
		return "bool"
	case 'n':
		return "NoneType"
	default:
		if bytes.ContainsAny(trimmed, ".eE") {
			return "float"
		}
		return "int"
	}
}

func listTypeMessage(kind string) string {
	return fmt.Sprintf("Expected a list of items but got type %q.", kind)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func encodeList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

func decodeList(data datatypes.JSON) ([]string, error) {
	values := []string{}
	if len(bytes.TrimSpace(data)) == 0 || isNull(json.RawMessage(data)) {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func derefString(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func derefInt(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
