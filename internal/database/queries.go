package database

// SQL queries for the accounts store. Balances are bound and scanned as
// decimal strings; SQLite's dynamic typing keeps the REAL-declared columns
// usable in numeric predicates.
const (
	queryGetAccount = `
		SELECT id, main_balance, pending_balance, license_active,
		       task_twitter, task_telegram, task_community, task_referral,
		       boosts, referral_code, referred_by, version, created_at, updated_at
		FROM accounts
		WHERE id = ?`

	queryGetAccountByReferralCode = `
		SELECT id, main_balance, pending_balance, license_active,
		       task_twitter, task_telegram, task_community, task_referral,
		       boosts, referral_code, referred_by, version, created_at, updated_at
		FROM accounts
		WHERE referral_code = ?`

	queryListAccounts = `
		SELECT id, main_balance, pending_balance, license_active,
		       task_twitter, task_telegram, task_community, task_referral,
		       boosts, referral_code, referred_by, version, created_at, updated_at
		FROM accounts
		ORDER BY created_at`

	queryInsertAccount = `
		INSERT INTO accounts (
			id, main_balance, pending_balance, license_active,
			task_twitter, task_telegram, task_community, task_referral,
			boosts, referral_code, referred_by, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`

	queryUpdateAccount = `
		UPDATE accounts
		SET main_balance = ?, pending_balance = ?, license_active = ?,
		    task_twitter = ?, task_telegram = ?, task_community = ?, task_referral = ?,
		    boosts = ?, referred_by = ?,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	querySelectPending = `
		SELECT id, main_balance, pending_balance
		FROM accounts
		WHERE pending_balance > 0`

	querySettleAccount = `
		UPDATE accounts
		SET main_balance = ?, pending_balance = 0,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryGetSettings = `
		SELECT airdrop_live, airdrop_end_date, updated_at
		FROM app_settings
		WHERE id = 1`

	queryUpsertSettings = `
		INSERT INTO app_settings (id, airdrop_live, airdrop_end_date, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			airdrop_live = excluded.airdrop_live,
			airdrop_end_date = excluded.airdrop_end_date,
			updated_at = CURRENT_TIMESTAMP`
)
