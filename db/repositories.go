package db

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func CountPessoas(conn PgxIface) (int64, error) {
	sql := `select count(*) from pessoas`

	var count int64

	err := conn.QueryRow(context.Background(), sql).Scan(&count)

	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetPessoaById returns nil without error when no row matches.
func GetPessoaById(conn PgxIface, id uuid.UUID) (*Pessoa, error) {
	sql := `select id, apelido, nome, nascimento, stack from pessoas where id = $1`

	var pessoa Pessoa

	err := conn.QueryRow(context.Background(), sql, id).Scan(
		&pessoa.Id,
		&pessoa.Apelido,
		&pessoa.Nome,
		&pessoa.Nascimento,
		&pessoa.Stack)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &pessoa, nil
}

// FindPessoas matches the term as a case insensitive substring of the
// precomputed search_vector, capped at 50 rows.
func FindPessoas(conn PgxIface, term string) ([]Pessoa, error) {
	sql := `select id, apelido, nome, nascimento, stack
		from pessoas
		where search_vector like '%' || $1 || '%'
		limit 50`

	result, err := conn.Query(context.Background(), sql, strings.ToLower(term))

	if err != nil {
		log.Println(err)
		return nil, err
	}
	defer result.Close()

	pessoas := []Pessoa{}

	for result.Next() {
		var pessoa Pessoa

		err := result.Scan(
			&pessoa.Id,
			&pessoa.Apelido,
			&pessoa.Nome,
			&pessoa.Nascimento,
			&pessoa.Stack)

		if err != nil {
			continue
		}

		pessoas = append(pessoas, pessoa)
	}

	return pessoas, result.Err()
}

// CheckApelidoExists probes for any row whose apelido contains the candidate
// as a substring, not an exact match. The probe and the later insert are not
// atomic; a concurrent create can slip between them.
func CheckApelidoExists(conn PgxIface, apelido string) (bool, error) {
	sql := `select 1 from pessoas where apelido like '%' || $1 || '%' limit 1`

	var one int

	err := conn.QueryRow(context.Background(), sql, apelido).Scan(&one)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// SavePessoa inserts the record with its derived search_vector and returns
// the rows affected count for diagnostics.
func SavePessoa(conn PgxIface, pessoa Pessoa) (int64, error) {
	sql := `insert into pessoas(id, apelido, nome, nascimento, stack, search_vector)
		values ($1, $2, $3, $4, $5::varchar[], $6)`

	exec, err := conn.Exec(context.Background(), sql,
		pessoa.Id, pessoa.Apelido, pessoa.Nome, pessoa.Nascimento, pessoa.Stack, pessoa.SearchVector())

	if err != nil {
		log.Printf("error executing insert %v", err)
		return 0, err
	}

	return exec.RowsAffected(), nil
}
