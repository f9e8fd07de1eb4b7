package ledger_test

import (
	"errors"
	"testing"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/fault"
	"github.com/arpit-jain-mygit/doc-transcribe-worker/ledger"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		fe   *fault.Error
		want ledger.Category
	}{
		{fault.New(fault.System, fault.CodeInfraRedis, ""), ledger.Transient},
		{fault.New(fault.System, fault.CodeInfraStorage, ""), ledger.Transient},
		{fault.New(fault.Model, fault.CodeRateLimitExceeded, ""), ledger.Transient},
		{fault.New(fault.Model, "", ""), ledger.Transient},
		{fault.New(fault.Model, fault.CodeModelProvider, ""), ledger.Transient},
		{fault.Wrap(errors.New("provider 503"), fault.Model, fault.CodeModelProvider), ledger.Transient},
		{fault.New(fault.Model, fault.CodeMediaDecodeFailed, ""), ledger.Media},
		{fault.New(fault.IO, fault.CodeInputNotFound, ""), ledger.Media},
		{fault.New(fault.System, fault.CodeProcessingFailed, ""), ledger.Default},
		{fault.New(fault.IO, "", ""), ledger.Default},
	}
	for _, tt := range tests {
		if got := ledger.Classify(tt.fe); got != tt.want {
			t.Errorf("Classify(%s/%s) = %s, want %s", tt.fe.Type, tt.fe.Code, got, tt.want)
		}
	}
}

func TestBudgets_ByTypeOverride(t *testing.T) {
	b := ledger.DefaultBudgets()
	b.ByType = map[fault.Type]int{fault.IO: 3}

	fe := fault.New(fault.IO, fault.CodeInputNotFound, "")
	if got := b.For(fe); got != 3 {
		t.Errorf("For(IO) = %d, want 3 from override", got)
	}
	if got := b.For(fault.New(fault.System, fault.CodeInfraRedis, "")); got != 3 {
		t.Errorf("For(INFRA_REDIS) = %d, want transient 3", got)
	}
	if got := b.For(fault.New(fault.System, fault.CodeProcessingFailed, "")); got != 2 {
		t.Errorf("For(PROCESSING_FAILED) = %d, want default 2", got)
	}
}

func TestDecide_RetryUntilBudget(t *testing.T) {
	b := ledger.Budgets{Default: 2}
	fe := fault.New(fault.System, fault.CodeProcessingFailed, "")

	d := b.Decide(fe, 1)
	if !d.Retry() {
		t.Fatalf("attempt 1 of 2: %+v, want retry", d)
	}
	d = b.Decide(fe, 2)
	if d.Retry() {
		t.Fatalf("attempt 2 of 2: %+v, want dead letter", d)
	}
	if d.MaxAttempts != 2 || d.Attempts != 2 {
		t.Errorf("Decision = %+v", d)
	}
}

func TestDecide_IOBudgetThree(t *testing.T) {
	b := ledger.DefaultBudgets()
	b.ByType = map[fault.Type]int{fault.IO: 3}
	fe := fault.From(fault.New(fault.IO, fault.CodeInputNotFound, "missing"))

	var retries int
	for attempt := 1; ; attempt++ {
		d := b.Decide(fe, attempt)
		if !d.Retry() {
			if attempt != 3 {
				t.Fatalf("dead-lettered at attempt %d, want 3", attempt)
			}
			if d.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", d.MaxAttempts)
			}
			break
		}
		retries++
	}
	if retries != 2 {
		t.Errorf("retries = %d, want 2", retries)
	}
}

func TestDecide_ModelFailureUsesTransientBudget(t *testing.T) {
	b := ledger.DefaultBudgets()
	fe := fault.From(fault.Wrap(errors.New("provider 503"), fault.Model, fault.CodeModelProvider))

	for attempt := 1; attempt < 3; attempt++ {
		if d := b.Decide(fe, attempt); !d.Retry() {
			t.Fatalf("attempt %d: %+v, want retry", attempt, d)
		}
	}
	d := b.Decide(fe, 3)
	if d.Retry() {
		t.Fatalf("attempt 3: %+v, want dead letter", d)
	}
	if d.Category != ledger.Transient || d.MaxAttempts != 3 {
		t.Errorf("Decision = %+v, want transient with max 3", d)
	}

	b.ByType = map[fault.Type]int{fault.Model: 5}
	if got := b.For(fe); got != 5 {
		t.Errorf("For(MODEL) = %d, want 5 from override", got)
	}
}

func TestDecide_ZeroBudget(t *testing.T) {
	b := ledger.Budgets{}
	d := b.Decide(fault.New(fault.System, fault.CodeProcessingFailed, ""), 1)
	if d.Retry() {
		t.Fatal("zero budget must dead-letter immediately")
	}
	if d.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", d.MaxAttempts)
	}
}

func TestDecide_ValidationNeverRetries(t *testing.T) {
	b := ledger.Budgets{Transient: 10, Media: 10, Default: 10}
	d := b.Decide(fault.Invalid(fault.CodeValidationSchema, "bad"), 1)
	if d.Retry() {
		t.Fatal("validation must not retry")
	}
	if d.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", d.MaxAttempts)
	}
}

func TestDecide_PermanentNeverRetries(t *testing.T) {
	b := ledger.Budgets{Default: 5}
	fe := fault.New(fault.Model, fault.CodeModelProvider, "")
	fe.Permanent = true
	if b.Decide(fe, 1).Retry() {
		t.Fatal("permanent failure must not retry")
	}
}
