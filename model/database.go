package model

import (
	"database/sql"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/hatstand/dashwatch/dash"
	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

// Press is a stored button press.
type Press struct {
	ID  string
	MAC string
	IP  string
	At  time.Time
}

func OpenDatabase(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	database := &Database{
		db: db,
	}
	err = database.init()
	if err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

func (db *Database) init() error {
	create := `
create table if not exists subscriptions (endpoint text, key blob, auth blob, unique (endpoint, key, auth) on conflict replace);
create table if not exists presses (id text primary key, mac text not null, ip text, at integer not null);
create index if not exists presses_at on presses (at);`
	_, err := db.db.Exec(create)
	return err
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) Subscribe(sub *wp.Subscription) error {
	transaction, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer transaction.Rollback()

	statement, err := transaction.Prepare("insert into subscriptions(endpoint, key, auth) values(?, ?, ?);")
	if err != nil {
		return err
	}
	defer statement.Close()

	_, err = statement.Exec(sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth)
	if err != nil {
		return err
	}
	return transaction.Commit()
}

// Unsubscribe removes every subscription for endpoint, for example after the
// push service reported it gone.
func (db *Database) Unsubscribe(endpoint string) error {
	_, err := db.db.Exec("delete from subscriptions where endpoint = ?;", endpoint)
	return err
}

func (db *Database) GetSubscriptions() ([]*wp.Subscription, error) {
	rows, err := db.db.Query("select endpoint, key, auth from subscriptions;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []*wp.Subscription
	for rows.Next() {
		sub := &wp.Subscription{}
		err = rows.Scan(&sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (db *Database) RecordPress(ev dash.Event) error {
	ip := ""
	if ev.Record.SenderProtocolAddr != nil {
		ip = ev.Record.SenderProtocolAddr.String()
	}
	_, err := db.db.Exec("insert into presses(id, mac, ip, at) values(?, ?, ?, ?);",
		ev.ID, ev.Addr.String(), ip, ev.At.UnixNano())
	return err
}

// RecentPresses returns up to limit presses, newest first.
func (db *Database) RecentPresses(limit int) ([]Press, error) {
	rows, err := db.db.Query("select id, mac, ip, at from presses order by at desc limit ?;", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var presses []Press
	for rows.Next() {
		var p Press
		var at int64
		if err := rows.Scan(&p.ID, &p.MAC, &p.IP, &at); err != nil {
			return nil, err
		}
		p.At = time.Unix(0, at)
		presses = append(presses, p)
	}
	return presses, rows.Err()
}
