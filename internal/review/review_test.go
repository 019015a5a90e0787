package review

import (
	"context"
	"errors"
	"testing"
)

type fakeService struct {
	installed    bool
	installedErr error
	reviewErr    error
	requested    int
}

func (s *fakeService) IsInstalled(ctx context.Context, owner, repo string) (bool, error) {
	return s.installed, s.installedErr
}

func (s *fakeService) RequestReview(ctx context.Context, owner, repo string, number int) error {
	s.requested++
	return s.reviewErr
}

func TestRequestReviewBestEffort(t *testing.T) {
	tests := []struct {
		name          string
		service       *fakeService
		want          bool
		wantRequested int
	}{
		{"installed and healthy", &fakeService{installed: true}, true, 1},
		{"not installed", &fakeService{installed: false}, false, 0},
		{"service unreachable", &fakeService{installedErr: errors.New("connection refused")}, false, 0},
		{"request fails", &fakeService{installed: true, reviewErr: errors.New("status 500")}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := NewTrigger(tt.service, "acme", "web-app", nil)
			if got := trigger.Request(context.Background(), 7); got != tt.want {
				t.Errorf("Request = %v, want %v", got, tt.want)
			}
			if tt.service.requested != tt.wantRequested {
				t.Errorf("review requested %d times, want %d", tt.service.requested, tt.wantRequested)
			}
		})
	}
}
