package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/ledger/stub"
	"tweetstamp/internal/wallet"
)

func newTestSubmitter(t *testing.T, client *stub.Client, opts ...Option) (*Submitter, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	base := []Option{WithPollDelay(time.Millisecond, 5*time.Millisecond)}
	return NewSubmitter(client, w, append(base, opts...)...), w
}

func TestSubmitCall_Success(t *testing.T) {
	client := stub.NewClient()
	client.Cost = 5000
	s, w := newTestSubmitter(t, client)

	receipt, err := s.SubmitCall(context.Background(), "contract", "mint", map[string]string{"_id": "0x2a"})
	require.NoError(t, err)
	assert.Equal(t, "0xstub-1", receipt.Handle)

	require.Len(t, client.Submitted, 1)
	tx := client.Submitted[0]
	assert.Equal(t, w.Address(), tx.From)
	assert.Equal(t, domain.Address("contract"), tx.To)
	assert.Equal(t, ledger.TxCall, tx.Kind)
	assert.Equal(t, "mint", tx.Method)
	assert.JSONEq(t, `{"_id":"0x2a"}`, string(tx.Params))
	assert.Equal(t, uint64(5000+DefaultCostMargin), tx.CostLimit)
}

func TestSubmitMessage_CarriesPayload(t *testing.T) {
	client := stub.NewClient()
	s, w := newTestSubmitter(t, client)

	_, err := s.SubmitMessage(context.Background(), w.Address(), "0xdeadbeef")
	require.NoError(t, err)

	require.Len(t, client.Submitted, 1)
	tx := client.Submitted[0]
	assert.Equal(t, ledger.TxMessage, tx.Kind)
	assert.Equal(t, "0xdeadbeef", tx.Data)
	assert.Equal(t, w.Address(), tx.To)
	assert.Empty(t, tx.Method)
}

func TestSubmit_SignatureVerifies(t *testing.T) {
	client := stub.NewClient()
	s, w := newTestSubmitter(t, client)

	_, err := s.SubmitMessage(context.Background(), "anywhere", "0x00")
	require.NoError(t, err)

	tx := client.Submitted[0]
	body, err := tx.SigningBytes()
	require.NoError(t, err)
	assert.NoError(t, wallet.VerifySignature(w.Address(), tx.PublicKey, tx.Signature, body))
}

func TestSubmit_CostMarginOption(t *testing.T) {
	client := stub.NewClient()
	client.Cost = 100
	s, _ := newTestSubmitter(t, client, WithCostMargin(7))

	_, err := s.SubmitMessage(context.Background(), "a", "0x00")
	require.NoError(t, err)
	assert.Equal(t, uint64(107), client.Submitted[0].CostLimit)
}

func TestSubmit_EstimateErrorPropagates(t *testing.T) {
	client := stub.NewClient()
	client.EstimateErr = errors.New("node offline")
	s, _ := newTestSubmitter(t, client)

	_, err := s.SubmitMessage(context.Background(), "a", "0x00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimate cost")
	assert.Empty(t, client.Submitted)
}

func TestSubmit_RejectionFailsFast(t *testing.T) {
	client := stub.NewClient()
	client.SubmitErr = errors.New("invalid signature")
	s, _ := newTestSubmitter(t, client)

	_, err := s.SubmitMessage(context.Background(), "a", "0x00")
	assert.ErrorIs(t, err, ErrSubmissionRejected)
	assert.Empty(t, client.StatusCalls)
}

func TestAwaitResult_PendingThenSuccess(t *testing.T) {
	client := stub.NewClient()
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusPending})
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusPending})
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{
		Status: ledger.StatusSuccess,
		Events: []ledger.Event{{Name: "URI", Params: map[string]string{"_id": "0x2a"}}},
	})
	s, _ := newTestSubmitter(t, client)

	receipt, err := s.SubmitMessage(context.Background(), "a", "0x00")
	require.NoError(t, err)
	assert.Equal(t, 3, client.StatusCalls["0xstub-1"])
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, "URI", receipt.Events[0].Name)
}

func TestAwaitResult_ExecutionFailure(t *testing.T) {
	client := stub.NewClient()
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusPending})
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusFailure, Failure: "unauthorized"})
	s, _ := newTestSubmitter(t, client)

	_, err := s.SubmitMessage(context.Background(), "a", "0x00")
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestAwaitResult_TimeoutAfterBudget(t *testing.T) {
	client := stub.NewClient()
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusPending})
	s, _ := newTestSubmitter(t, client, WithPollAttempts(4))

	_, err := s.SubmitMessage(context.Background(), "a", "0x00")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 4, client.StatusCalls["0xstub-1"])
}

func TestAwaitResult_TransientErrorsRetried(t *testing.T) {
	client := stub.NewClient()
	client.ScriptStatusErr("0xstub-1", errors.New("connection reset"))
	client.ScriptStatusErr("0xstub-1", errors.New("connection reset"))
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusSuccess})
	s, _ := newTestSubmitter(t, client)

	receipt, err := s.SubmitMessage(context.Background(), "a", "0x00")
	require.NoError(t, err)
	assert.Equal(t, "0xstub-1", receipt.Handle)
	assert.Equal(t, 3, client.StatusCalls["0xstub-1"])
}

func TestAwaitResult_ContextCancelled(t *testing.T) {
	client := stub.NewClient()
	client.ScriptStatus("0xstub-1", &ledger.TxStatus{Status: ledger.StatusPending})
	s, _ := newTestSubmitter(t, client, WithPollAttempts(1000), WithPollDelay(50*time.Millisecond, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.SubmitMessage(ctx, "a", "0x00")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_NoncesIncrease(t *testing.T) {
	client := stub.NewClient()
	s, _ := newTestSubmitter(t, client)

	_, err := s.SubmitMessage(context.Background(), "a", "0x01")
	require.NoError(t, err)
	_, err = s.SubmitCall(context.Background(), "a", "burn", json.RawMessage(`{"_id":"0x1"}`))
	require.NoError(t, err)

	require.Len(t, client.Submitted, 2)
	assert.Less(t, client.Submitted[0].Nonce, client.Submitted[1].Nonce)
}
