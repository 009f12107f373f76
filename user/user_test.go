package user

import (
	"context"
	"errors"
	"testing"
)

func TestOpenGate(t *testing.T) {
	gate := OpenGate{}
	ctx := context.Background()

	if err := gate.RequireRead(ctx, User{ID: 1}, 99); err != nil {
		t.Errorf("expected open read, got %v", err)
	}
	if err := gate.RequireWrite(ctx, User{ID: 1}, 99); err != nil {
		t.Errorf("expected open write, got %v", err)
	}
}

func TestStaticGate(t *testing.T) {
	gate := &StaticGate{
		Readers: map[int64][]int64{3: {1, 2}},
		Writers: map[int64][]int64{3: {1}},
	}
	ctx := context.Background()

	if err := gate.RequireRead(ctx, User{ID: 2}, 3); err != nil {
		t.Errorf("expected granted read, got %v", err)
	}
	if err := gate.RequireWrite(ctx, User{ID: 2}, 3); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for ungranted write, got %v", err)
	}
	if err := gate.RequireRead(ctx, User{ID: 9}, 3); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for ungranted read, got %v", err)
	}
	if err := gate.RequireRead(ctx, User{ID: 9}, 4); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for unknown challenge, got %v", err)
	}

	super := User{ID: 9, SuperUser: true}
	if err := gate.RequireWrite(ctx, super, 3); err != nil {
		t.Errorf("expected super user bypass, got %v", err)
	}
}
