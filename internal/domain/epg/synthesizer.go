package epg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buger/jsonparser"
)

// ErrMalformedRecord marks a stored payload that cannot be rendered.
var ErrMalformedRecord = errors.New("malformed program record")

// Synthesizer renders stored records and placeholder schedules.
type Synthesizer struct {
	cfg   Config
	icons IconResolver
	now   func() time.Time
}

// NewSynthesizer builds a Synthesizer. A nil location means UTC.
func NewSynthesizer(cfg Config, icons IconResolver) *Synthesizer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Synthesizer{cfg: cfg, icons: icons, now: time.Now}
}

// Render turns a matched record into the schema document.
func (s *Synthesizer) Render(match MatchCandidate, oriName, cleanName string, schema Schema, baseURL string) ([]byte, error) {
	doc, err := decodeObject(match.Record.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	icon := s.icon(cleanName, oriName, baseURL)
	doc = doc.without("source").without("icon").insertAfter("url", member{key: "icon", value: icon})

	if schema == SchemaDIYP {
		return render(doc), nil
	}
	return s.renderLoveTV(match.Record.Payload, oriName, icon)
}

func (s *Synthesizer) renderLoveTV(payload []byte, oriName string, icon any) ([]byte, error) {
	date, err := jsonparser.GetString(payload, "date")
	if err != nil {
		return nil, fmt.Errorf("%w: date: %v", ErrMalformedRecord, err)
	}
	channelName, _ := jsonparser.GetString(payload, "channel_name")
	lvURL, _ := jsonparser.GetString(payload, "url")

	programs := make([]object, 0, 32)
	entries := make([]programTimes, 0, 32)
	_, err = jsonparser.ArrayEach(payload, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if dataType != jsonparser.Object {
			return
		}
		start, _ := jsonparser.GetString(value, "start")
		end, _ := jsonparser.GetString(value, "end")
		title, _ := jsonparser.GetString(value, "title")
		span, ok := s.programSpan(date, start, end)
		if !ok {
			return
		}
		duration := span.et - span.st
		span.title = title
		entries = append(entries, span)
		programs = append(programs, object{
			{key: "st", value: span.st},
			{key: "et", value: span.et},
			{key: "eventType", value: ""},
			{key: "eventId", value: ""},
			{key: "t", value: title},
			{key: "showTime", value: ShowTime(duration)},
			{key: "duration", value: duration},
		})
	}, "epg_data")
	if err != nil {
		return nil, fmt.Errorf("%w: epg_data: %v", ErrMalformedRecord, err)
	}

	var (
		liveTitle string
		liveStart int64
	)
	now := s.now().In(s.cfg.Location)
	if date == now.Format(dateLayout) {
		if current, ok := currentProgram(entries, now.Unix()); ok {
			liveTitle, liveStart = current.title, current.st
		}
	}

	return render(object{{key: oriName, value: object{
		{key: "isLive", value: liveTitle},
		{key: "liveSt", value: liveStart},
		{key: "channelName", value: channelName},
		{key: "lvUrl", value: lvURL},
		{key: "icon", value: icon},
		{key: "program", value: programs},
	}}}), nil
}

type programTimes struct {
	st, et int64
	title  string
}

// programSpan anchors HH:MM[:SS] times on date. An end at or before the
// start belongs to the following day.
func (s *Synthesizer) programSpan(date, start, end string) (programTimes, bool) {
	st, ok := parseClock(date, start, s.cfg.Location)
	if !ok {
		return programTimes{}, false
	}
	et, ok := parseClock(date, end, s.cfg.Location)
	if !ok {
		return programTimes{}, false
	}
	if !et.After(st) {
		et = et.AddDate(0, 0, 1)
	}
	return programTimes{st: st.Unix(), et: et.Unix()}, true
}

func parseClock(date, clock string, loc *time.Location) (time.Time, bool) {
	clock = strings.TrimSpace(clock)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// currentProgram returns the first entry whose [st, et] holds now.
func currentProgram(entries []programTimes, now int64) (programTimes, bool) {
	for _, e := range entries {
		if e.st <= now && now <= e.et {
			return e, true
		}
	}
	return programTimes{}, false
}

// ShowTime renders a duration in seconds as zero padded HH:MM, wrapping
// at 24 hours.
func ShowTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", (seconds/3600)%24, (seconds%3600)/60)
}

// Default builds the placeholder document for a channel with no record.
func (s *Synthesizer) Default(oriName, cleanName, date string, schema Schema, baseURL string) []byte {
	icon := s.icon(cleanName, oriName, baseURL)
	if schema == SchemaDIYP {
		var epgData any = ""
		if s.cfg.DefaultData {
			hours := make([]object, 0, 24)
			for h := 0; h < 24; h++ {
				hours = append(hours, object{
					{key: "start", value: fmt.Sprintf("%02d:00", h)},
					{key: "end", value: fmt.Sprintf("%02d:00", (h+1)%24)},
					{key: "title", value: s.cfg.PlaceholderTitle},
					{key: "desc", value: ""},
				})
			}
			epgData = hours
		}
		return render(object{
			{key: "channel_name", value: cleanName},
			{key: "date", value: date},
			{key: "url", value: s.cfg.PlaceholderURL},
			{key: "icon", value: icon},
			{key: "epg_data", value: epgData},
		})
	}

	var program any = ""
	if s.cfg.DefaultData {
		day, err := time.ParseInLocation(dateLayout, date, s.cfg.Location)
		if err != nil {
			day = s.now().In(s.cfg.Location)
		}
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.cfg.Location)
		hours := make([]object, 0, 24)
		for h := 0; h < 24; h++ {
			st := midnight.Add(time.Duration(h) * time.Hour).Unix()
			hours = append(hours, object{
				{key: "st", value: st},
				{key: "et", value: st + 3600},
				{key: "t", value: s.cfg.PlaceholderTitle},
				{key: "d", value: ""},
			})
		}
		program = hours
	}
	return render(object{{key: cleanName, value: object{
		{key: "isLive", value: ""},
		{key: "liveSt", value: 0},
		{key: "channelName", value: cleanName},
		{key: "lvUrl", value: s.cfg.PlaceholderURL},
		{key: "icon", value: icon},
		{key: "program", value: program},
	}}})
}

// icon resolves by cleaned name first, then the name as requested. nil
// renders as JSON null when neither is known.
func (s *Synthesizer) icon(cleanName, oriName, baseURL string) any {
	if s.icons == nil {
		return nil
	}
	url, ok := s.icons.Resolve(cleanName)
	if !ok {
		url, ok = s.icons.Resolve(oriName)
	}
	if !ok {
		return nil
	}
	if strings.HasPrefix(url, "/") {
		return strings.TrimRight(baseURL, "/") + url
	}
	return url
}
