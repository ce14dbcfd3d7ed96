package omop

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockMapper(t *testing.T) (*Mapper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newMapperFromDB(db), mock
}

func TestMapper_Map_ExactConceptName(t *testing.T) {
	mapper, mock := newMockMapper(t)

	rows := sqlmock.NewRows([]string{"concept_id", "concept_name", "vocabulary_id"}).
		AddRow(int64(4329847), "Myocardial infarction", "SNOMED")
	mock.ExpectQuery("FROM concept").WillReturnRows(rows)

	concept, err := mapper.Map(context.Background(), "Myocardial infarction", "Condition")
	require.NoError(t, err)
	require.NotNil(t, concept)
	assert.Equal(t, int64(4329847), concept.ConceptID)
	assert.Equal(t, 1.0, concept.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapper_Map_FallsThroughToSynonym(t *testing.T) {
	mapper, mock := newMockMapper(t)

	mock.ExpectQuery("FROM concept\\s+WHERE").WillReturnRows(
		sqlmock.NewRows([]string{"concept_id", "concept_name", "vocabulary_id"}))
	mock.ExpectQuery("concept_synonym").WillReturnRows(
		sqlmock.NewRows([]string{"concept_id", "concept_name", "vocabulary_id"}).
			AddRow(int64(1), "Heart attack", "SNOMED"))

	concept, err := mapper.Map(context.Background(), "heart attack", "Condition")
	require.NoError(t, err)
	require.NotNil(t, concept)
	assert.Equal(t, 0.9, concept.Confidence)
}

func TestMapper_Map_NoMatchReturnsNilWithoutError(t *testing.T) {
	mapper, mock := newMockMapper(t)

	empty := sqlmock.NewRows([]string{"concept_id", "concept_name", "vocabulary_id"})
	mock.ExpectQuery("FROM concept\\s+WHERE").WillReturnRows(empty)
	mock.ExpectQuery("concept_synonym").WillReturnRows(empty)
	mock.ExpectQuery("similarity").WillReturnRows(
		sqlmock.NewRows([]string{"concept_id", "concept_name", "vocabulary_id", "sim"}))

	concept, err := mapper.Map(context.Background(), "not a real concept", "")
	require.NoError(t, err)
	assert.Nil(t, concept)
}
