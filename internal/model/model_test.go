package model

import (
	"errors"
	"testing"
)

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		in      string
		want    Anchor
		wantErr bool
	}{
		{"BR", AnchorBottomRight, false},
		{"tl", AnchorTopLeft, false},
		{" cc ", AnchorCenter, false},
		{"XY", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnchor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAnchor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAnchor(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAnchor_Align(t *testing.T) {
	for _, a := range Anchors {
		h, v := a.Align()
		if h < -1 || h > 1 || v < -1 || v > 1 {
			t.Errorf("%s.Align() = (%d, %d) out of range", a, h, v)
		}
	}
	if h, v := AnchorTopRight.Align(); h != 1 || v != -1 {
		t.Errorf("TR.Align() = (%d, %d), want (1, -1)", h, v)
	}
	if h, v := AnchorCenter.Align(); h != 0 || v != 0 {
		t.Errorf("CC.Align() = (%d, %d), want (0, 0)", h, v)
	}
}

func TestPlacementConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlacementConfig)
		wantErr bool
	}{
		{"defaults", func(*PlacementConfig) {}, false},
		{"scale above 100", func(p *PlacementConfig) { p.Scale = 101 }, true},
		{"negative opacity", func(p *PlacementConfig) { p.Opacity = -1 }, true},
		{"opacity bounds", func(p *PlacementConfig) { p.Opacity = 100; p.Scale = 0 }, false},
		{"negative margin", func(p *PlacementConfig) { p.Margin = -1 }, true},
		{"unknown anchor", func(p *PlacementConfig) { p.Anchor = "ZZ" }, true},
		{"zero multiplier", func(p *PlacementConfig) { p.PortraitMultiplier = 0 }, true},
		{"zero multiplier unused", func(p *PlacementConfig) {
			p.PortraitMultiplier = 0
			p.PortraitOptimize = false
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPlacement()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPlacement) {
				t.Errorf("err = %v, want ErrInvalidPlacement", err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"JPG", FormatJPEG, false},
		{"jpeg", FormatJPEG, false},
		{"PNG", FormatPNG, false},
		{"webp", FormatWEBP, false},
		{"tif", FormatTIFF, false},
		{"BMP", FormatBMP, false},
		{"", "", false},
		{"None", "", false},
		{"Same as source", "", false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutputSpec_Validate(t *testing.T) {
	o := DefaultOutput()
	o.PrimaryFormat, o.ExtraFormat = FormatPNG, FormatPNG
	if err := o.Validate(); !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("equal formats: err = %v, want ErrInvalidOutput", err)
	}

	o = DefaultOutput()
	o.JPEGQuality = 0
	if err := o.Validate(); err == nil {
		t.Error("quality 0 accepted")
	}

	o = DefaultOutput()
	o.MaxSize = -1
	if err := o.Validate(); err == nil {
		t.Error("negative max size accepted")
	}

	o = DefaultOutput()
	o.PrimaryFormat, o.ExtraFormat = FormatJPEG, FormatWEBP
	if err := o.Validate(); err != nil {
		t.Errorf("valid output rejected: %v", err)
	}
}

func TestOutputSpec_Formats(t *testing.T) {
	tests := []struct {
		name           string
		primary, extra Format
		source         string
		want           []Format
	}{
		{"same as source", "", "", "a.JPG", []Format{FormatJPEG}},
		{"explicit primary", FormatPNG, "", "a.jpg", []Format{FormatPNG}},
		{"dual", FormatJPEG, FormatPNG, "a.tif", []Format{FormatJPEG, FormatPNG}},
		{"extra equals source", "", FormatPNG, "a.png", []Format{FormatPNG}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOutput()
			o.PrimaryFormat, o.ExtraFormat = tt.primary, tt.extra
			got, err := o.Formats(tt.source)
			if err != nil {
				t.Fatalf("Formats: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Formats = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Formats = %v, want %v", got, tt.want)
				}
			}
		})
	}

	if _, err := DefaultOutput().Formats("README"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("source without extension: err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestOutcomeConstructors(t *testing.T) {
	job := WatermarkJob{SourcePath: "in/a.jpg"}

	if o := Succeeded(job, []string{"out/a.jpg"}); o.Status != StatusSuccess || o.SourcePath != "in/a.jpg" {
		t.Errorf("Succeeded = %+v", o)
	}
	if o := Skipped(job, ReasonCancelled); o.Status != StatusSkipped || o.Reason != ReasonCancelled {
		t.Errorf("Skipped = %+v", o)
	}
	if o := Failed(job, errors.New("boom")); o.Status != StatusFailed || o.Reason != "boom" {
		t.Errorf("Failed = %+v", o)
	}
}
