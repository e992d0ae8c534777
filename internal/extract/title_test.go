package extract

import "testing"

func TestTitleFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.commerce.senate.gov/2025/6/executive-session-12":             "2025 6 Executive Session 12",
		"https://www.commerce.senate.gov/hearings/06-26-2025/nominations_hearing": "Hearings 06-26-2025 Nominations Hearing",
		"https://judiciary.house.gov/hearing/oversight-of-the-fbi.htm":            "Hearing Oversight Of The Fbi",
		"https://www.commerce.senate.gov/":                                        "",
	}
	for rawURL, want := range cases {
		if got := TitleFromURL(rawURL); got != want {
			t.Errorf("TitleFromURL(%q) = %q want %q", rawURL, got, want)
		}
	}
}
