package bootstrap

import "testing"

func TestAppCloseRunsCleanup(t *testing.T) {
	closed := 0
	app := &App{closeFn: func() { closed++ }}

	app.Close()
	if closed != 1 {
		t.Fatalf("expected cleanup to run once, ran %d times", closed)
	}
}

func TestAppCloseZeroValueIsSafe(t *testing.T) {
	var app App
	app.Close()
}
