package store

import (
	"github.com/eigerco/tribunal/internal/params"
	"github.com/eigerco/tribunal/internal/state"
)

var configKey = []byte{prefixConfig}
var paramsKey = []byte{prefixParams}

func (t *Txn) Params() (params.Params, error) {
	var p params.Params
	err := t.get(paramsKey, &p)
	return p, err
}

func (t *Txn) PutParams(p params.Params) error { return t.put(paramsKey, p) }

func (t *Txn) Config() (state.ProtocolConfig, error) {
	var c state.ProtocolConfig
	err := t.get(configKey, &c)
	return c, err
}

func (t *Txn) PutConfig(c state.ProtocolConfig) error { return t.put(configKey, c) }

func (t *Txn) Account(owner state.Address) (state.Account, error) {
	var a state.Account
	err := t.get(accountKey(owner), &a)
	return a, err
}

func (t *Txn) PutAccount(a state.Account) error { return t.put(accountKey(a.Owner), a) }

// Accounts returns every account in key order.
func (t *Txn) Accounts() ([]state.Account, error) {
	return scanAs[state.Account](t, []byte{prefixAccount})
}

func (t *Txn) Pool(role state.Role, owner state.Address) (state.Pool, error) {
	var p state.Pool
	err := t.get(poolKey(role, owner), &p)
	return p, err
}

func (t *Txn) PutPool(p state.Pool) error { return t.put(poolKey(p.Role, p.Owner), p) }

// Pools returns every pool in key order.
func (t *Txn) Pools() ([]state.Pool, error) {
	return scanAs[state.Pool](t, []byte{prefixPool})
}

func (t *Txn) Subject(id state.SubjectID) (state.Subject, error) {
	var s state.Subject
	err := t.get(subjectKey(prefixSubject, id), &s)
	return s, err
}

func (t *Txn) PutSubject(s state.Subject) error { return t.put(subjectKey(prefixSubject, s.ID), s) }

// Subjects returns every subject in key order.
func (t *Txn) Subjects() ([]state.Subject, error) {
	return scanAs[state.Subject](t, []byte{prefixSubject})
}

func (t *Txn) Dispute(id state.SubjectID) (state.Dispute, error) {
	var d state.Dispute
	err := t.get(subjectKey(prefixDispute, id), &d)
	return d, err
}

func (t *Txn) PutDispute(d state.Dispute) error {
	return t.put(subjectKey(prefixDispute, d.SubjectID), d)
}

func (t *Txn) Escrow(id state.SubjectID) (state.Escrow, error) {
	var e state.Escrow
	err := t.get(subjectKey(prefixEscrow, id), &e)
	return e, err
}

func (t *Txn) PutEscrow(e state.Escrow) error { return t.put(subjectKey(prefixEscrow, e.SubjectID), e) }

func (t *Txn) DefenderRecord(id state.SubjectID, round uint64, owner state.Address) (state.DefenderRecord, error) {
	var r state.DefenderRecord
	err := t.get(recordKey(prefixDefenderRecord, id, round, owner), &r)
	return r, err
}

func (t *Txn) PutDefenderRecord(r state.DefenderRecord) error {
	return t.put(recordKey(prefixDefenderRecord, r.SubjectID, r.Round, r.Defender), r)
}

func (t *Txn) DeleteDefenderRecord(id state.SubjectID, round uint64, owner state.Address) error {
	return t.delete(recordKey(prefixDefenderRecord, id, round, owner))
}

// DefenderRecords returns the defender records of one round in key order.
func (t *Txn) DefenderRecords(id state.SubjectID, round uint64) ([]state.DefenderRecord, error) {
	return scanAs[state.DefenderRecord](t, roundPrefix(prefixDefenderRecord, id, round))
}

func (t *Txn) ChallengerRecord(id state.SubjectID, round uint64, owner state.Address) (state.ChallengerRecord, error) {
	var r state.ChallengerRecord
	err := t.get(recordKey(prefixChallengerRecord, id, round, owner), &r)
	return r, err
}

func (t *Txn) PutChallengerRecord(r state.ChallengerRecord) error {
	return t.put(recordKey(prefixChallengerRecord, r.SubjectID, r.Round, r.Challenger), r)
}

func (t *Txn) DeleteChallengerRecord(id state.SubjectID, round uint64, owner state.Address) error {
	return t.delete(recordKey(prefixChallengerRecord, id, round, owner))
}

// ChallengerRecords returns the challenger records of one round in key order.
func (t *Txn) ChallengerRecords(id state.SubjectID, round uint64) ([]state.ChallengerRecord, error) {
	return scanAs[state.ChallengerRecord](t, roundPrefix(prefixChallengerRecord, id, round))
}

func (t *Txn) JurorRecord(id state.SubjectID, round uint64, owner state.Address) (state.JurorRecord, error) {
	var r state.JurorRecord
	err := t.get(recordKey(prefixJurorRecord, id, round, owner), &r)
	return r, err
}

func (t *Txn) PutJurorRecord(r state.JurorRecord) error {
	return t.put(recordKey(prefixJurorRecord, r.SubjectID, r.Round, r.Juror), r)
}

func (t *Txn) DeleteJurorRecord(id state.SubjectID, round uint64, owner state.Address) error {
	return t.delete(recordKey(prefixJurorRecord, id, round, owner))
}

// JurorRecords returns the juror records of one round in key order.
func (t *Txn) JurorRecords(id state.SubjectID, round uint64) ([]state.JurorRecord, error) {
	return scanAs[state.JurorRecord](t, roundPrefix(prefixJurorRecord, id, round))
}

// Escrows returns every escrow in key order.
func (t *Txn) Escrows() ([]state.Escrow, error) {
	return scanAs[state.Escrow](t, []byte{prefixEscrow})
}
