package normalize

import "testing"

// ParseURL(BuildURL(user, id)) round-trips for every supported URL
// shape.
func TestParseURLRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		url  string
		user string
		id   string
	}{
		{"x.com", "https://x.com/sama/status/12345", "sama", "12345"},
		{"twitter.com", "https://twitter.com/sama/status/12345", "sama", "12345"},
		{"mobile.twitter.com", "https://mobile.twitter.com/sama/status/12345", "sama", "12345"},
		{"vxtwitter.com", "https://vxtwitter.com/sama/status/12345", "sama", "12345"},
		{"fxtwitter.com", "https://fxtwitter.com/sama/status/12345", "sama", "12345"},
		{"with query string", "https://x.com/sama/status/12345?s=20&t=abc", "sama", "12345"},
		{"www prefix", "https://www.x.com/sama/status/12345", "sama", "12345"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			user, id, err := ParseURL(c.url)
			if err != nil {
				t.Fatalf("ParseURL(%q): %v", c.url, err)
			}
			if user != c.user || id != c.id {
				t.Fatalf("ParseURL(%q) = (%q, %q), want (%q, %q)", c.url, user, id, c.user, c.id)
			}

			// round-trip through BuildURL + ParseURL again.
			rebuilt := BuildURL(user, id)
			user2, id2, err := ParseURL(rebuilt)
			if err != nil {
				t.Fatalf("ParseURL(BuildURL(...)): %v", err)
			}
			if user2 != c.user || id2 != c.id {
				t.Fatalf("round-trip mismatch: got (%q, %q), want (%q, %q)", user2, id2, c.user, c.id)
			}
		})
	}
}

func TestParseURLInvalidSource(t *testing.T) {
	invalid := []string{
		"not a url",
		"https://example.com/sama/status/12345",
		"https://x.com/sama",
		"",
	}
	for _, u := range invalid {
		if _, _, err := ParseURL(u); err == nil {
			t.Fatalf("expected ParseURL(%q) to fail", u)
		}
		if IsValidTweetURL(u) {
			t.Fatalf("expected IsValidTweetURL(%q) to be false", u)
		}
	}
}

func TestFromURLPopulatesRecord(t *testing.T) {
	rec, err := FromURL(URLSource{URL: "https://x.com/sama/status/999", Memo: "interesting take"})
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if rec.TweetID != "999" || rec.AuthorUsername != "sama" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Source != "manual" {
		t.Fatalf("expected source=manual, got %q", rec.Source)
	}
	if rec.FeedbackNote != "interesting take" {
		t.Fatalf("expected memo to carry into feedback_note, got %q", rec.FeedbackNote)
	}
	if rec.CollectedAt.IsZero() {
		t.Fatalf("expected collected_at to be stamped")
	}
}

func TestFromAPIDataLegacyShape(t *testing.T) {
	payload := map[string]any{
		"id_str":         "111",
		"full_text":      "hello world",
		"favorite_count": float64(10),
		"retweet_count":  float64(3),
		"lang":           "en",
		"user": map[string]any{
			"screen_name": "legacyuser",
			"name":        "Legacy User",
		},
	}
	rec, err := FromAPIData(APISource{Payload: payload})
	if err != nil {
		t.Fatalf("FromAPIData: %v", err)
	}
	if rec.TweetID != "111" || rec.Text != "hello world" || rec.AuthorUsername != "legacyuser" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Likes != 10 || rec.Retweets != 3 {
		t.Fatalf("unexpected engagement counts: %+v", rec)
	}
	if rec.Source != "api" {
		t.Fatalf("expected source=api, got %q", rec.Source)
	}
}

func TestFromAPIDataV2Shape(t *testing.T) {
	payload := map[string]any{
		"id":   "222",
		"text": "v2 shape",
		"public_metrics": map[string]any{
			"like_count":    float64(5),
			"retweet_count": float64(1),
			"reply_count":   float64(2),
			"quote_count":   float64(0),
		},
		"author_username": "v2user",
	}
	rec, err := FromAPIData(APISource{Payload: payload})
	if err != nil {
		t.Fatalf("FromAPIData: %v", err)
	}
	if rec.TweetID != "222" || rec.AuthorUsername != "v2user" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Likes != 5 || rec.Retweets != 1 || rec.Replies != 2 {
		t.Fatalf("unexpected engagement counts: %+v", rec)
	}
}

func TestFromAPIDataMissingIDFails(t *testing.T) {
	_, err := FromAPIData(APISource{Payload: map[string]any{"text": "no id here"}})
	if err == nil {
		t.Fatalf("expected error for payload missing an id field")
	}
}
