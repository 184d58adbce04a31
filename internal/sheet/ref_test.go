package sheet

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{
			name: "raw id",
			ref:  "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
			want: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
		},
		{
			name: "raw id with surrounding space",
			ref:  "  abc-123_XYZ  ",
			want: "abc-123_XYZ",
		},
		{
			name: "url with id parameter",
			ref:  "https://sheets.example.com/view?id=XYZ",
			want: "XYZ",
		},
		{
			name: "url with id among other parameters",
			ref:  "https://sheets.example.com/view?gid=0&id=XYZ&hl=en",
			want: "XYZ",
		},
		{
			name:    "url without id parameter",
			ref:     "https://sheets.example.com/view?gid=0",
			wantErr: true,
		},
		{
			name:    "url with empty id",
			ref:     "https://sheets.example.com/view?id=",
			wantErr: true,
		},
		{
			name:    "empty reference",
			ref:     "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			ref:     "   ",
			wantErr: true,
		},
		{
			name:    "raw id with invalid characters",
			ref:     "abc/def",
			wantErr: true,
		},
		{
			name:    "url with invalid id characters",
			ref:     "https://sheets.example.com/view?id=a%20b",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) expected error, got %q", tt.ref, got)
				}
				if !errors.Is(err, ErrInvalidReference) {
					t.Errorf("Resolve(%q) error = %v, want ErrInvalidReference", tt.ref, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
