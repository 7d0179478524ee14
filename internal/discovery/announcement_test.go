package discovery

import (
	"errors"
	"testing"
)

func TestParseAnnouncement(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Announcement
		wantErr bool
	}{
		{"valid", "SERVER_DISCOVERY:10.0.0.5:12345", Announcement{IP: "10.0.0.5", Port: 12345}, false},
		{"loopback", "SERVER_DISCOVERY:127.0.0.1:1", Announcement{IP: "127.0.0.1", Port: 1}, false},
		{"wrong prefix", "CLIENT_HELLO:10.0.0.5:12345", Announcement{}, true},
		{"prefix only", "SERVER_DISCOVERY", Announcement{}, true},
		{"two fields", "SERVER_DISCOVERY:10.0.0.5", Announcement{}, true},
		{"four fields", "SERVER_DISCOVERY:10.0.0.5:12345:extra", Announcement{}, true},
		{"ipv6", "SERVER_DISCOVERY:::1:12345", Announcement{}, true},
		{"hostname", "SERVER_DISCOVERY:server.local:12345", Announcement{}, true},
		{"non-numeric port", "SERVER_DISCOVERY:10.0.0.5:http", Announcement{}, true},
		{"port zero", "SERVER_DISCOVERY:10.0.0.5:0", Announcement{}, true},
		{"port too large", "SERVER_DISCOVERY:10.0.0.5:65536", Announcement{}, true},
		{"empty", "", Announcement{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnnouncement([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("ParseAnnouncement(%q) error = %v, want ErrMalformed", tt.payload, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAnnouncement(%q) error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("ParseAnnouncement(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestAnnouncementFormat(t *testing.T) {
	a := Announcement{IP: "192.168.1.20", Port: 12345}
	if got := a.String(); got != "SERVER_DISCOVERY:192.168.1.20:12345" {
		t.Errorf("String() = %q", got)
	}
	if got := a.Addr(); got != "192.168.1.20:12345" {
		t.Errorf("Addr() = %q", got)
	}
	back, err := ParseAnnouncement([]byte(a.String()))
	if err != nil || back != a {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}
