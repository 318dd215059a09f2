package model

import (
	"math"
	"testing"
)

func validKinematics() Kinematics {
	return Kinematics{
		Lat:       37.25,
		Lon:       -115.75,
		AltHAE:    300,
		HeightAGL: 200,
		Speed:     15,
		VSpeed:    2.5,
		Course:    127.4,
	}
}

func TestKinematics_ValidateAccepts(t *testing.T) {
	if err := validKinematics().Validate(); err != nil {
		t.Fatalf("Validate on sane kinematics: %v", err)
	}
}

func TestKinematics_ValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Kinematics)
	}{
		{"nan lat", func(k *Kinematics) { k.Lat = math.NaN() }},
		{"inf speed", func(k *Kinematics) { k.Speed = math.Inf(1) }},
		{"neg inf alt", func(k *Kinematics) { k.AltHAE = math.Inf(-1) }},
		{"lat too high", func(k *Kinematics) { k.Lat = 90.5 }},
		{"lat too low", func(k *Kinematics) { k.Lat = -91 }},
		{"lon too high", func(k *Kinematics) { k.Lon = 181 }},
		{"course negative", func(k *Kinematics) { k.Course = -0.1 }},
		{"course wrapped", func(k *Kinematics) { k.Course = 360 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := validKinematics()
			tc.mutate(&k)
			if err := k.Validate(); err == nil {
				t.Fatalf("expected Validate to reject %s", tc.name)
			}
		})
	}
}

func TestIdentity_DependentUIDs(t *testing.T) {
	cases := []struct {
		uid       string
		wantPilot string
		wantHome  string
	}{
		{"3NZDJ1Y0010ABC", "pilot-3NZDJ1Y0010ABC", "home-3NZDJ1Y0010ABC"},
		{"drone-AB12", "pilot-AB12", "home-AB12"},
		{"drone-drone-X", "pilot-drone-X", "home-drone-X"},
	}
	for _, tc := range cases {
		id := Identity{UID: tc.uid}
		if got := id.PilotUID(); got != tc.wantPilot {
			t.Errorf("PilotUID(%q) = %q, want %q", tc.uid, got, tc.wantPilot)
		}
		if got := id.HomeUID(); got != tc.wantHome {
			t.Errorf("HomeUID(%q) = %q, want %q", tc.uid, got, tc.wantHome)
		}
	}
}

func TestClassAndPatternStrings(t *testing.T) {
	if got := ClassDrone.String(); got != "drone" {
		t.Errorf("ClassDrone.String() = %q", got)
	}
	if got := Class(99).String(); got != "unknown" {
		t.Errorf("Class(99).String() = %q", got)
	}
	if got := PatternFigureEight.String(); got != "figure-eight" {
		t.Errorf("PatternFigureEight.String() = %q", got)
	}
}
