package repos

import (
	"sort"

	"github.com/domainbrowser/searchjobs/internal/db/dbtest"
	"github.com/domainbrowser/searchjobs/internal/db/models"
)

func domainIDs(domains []models.Domain) []string {
	ids := make([]string, 0, len(domains))
	for _, d := range domains {
		ids = append(ids, d.DomainID)
	}
	sort.Strings(ids)
	return ids
}

func (s *DBRepositoryTestSuite) TestFindByKeys_KeysAndIDs() {
	s.createTestDomains()
	counter := dbtest.CountQueries(s.T(), s.db)

	found, err := s.domainRepo.FindByKeys(s.ctx, []uint{123, 99999}, []string{"2xyzB02", "9zzzZ99"})
	s.Require().NoError(err)
	s.Equal([]string{"1abcA01", "2xyzB02"}, domainIDs(found))
	s.Equal(1, counter.N(), "lookup is a single query")
}

func (s *DBRepositoryTestSuite) TestFindByKeys_KeysOnly() {
	s.createTestDomains()

	found, err := s.domainRepo.FindByKeys(s.ctx, []uint{9}, nil)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Immunoglobulins", found[0].FamilyName)
}

func (s *DBRepositoryTestSuite) TestFindByKeys_IDsOnly() {
	s.createTestDomains()

	found, err := s.domainRepo.FindByKeys(s.ctx, nil, []string{"3defC00"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(uint(9), found[0].ID)
}

func (s *DBRepositoryTestSuite) TestFindByKeys_Empty() {
	counter := dbtest.CountQueries(s.T(), s.db)

	found, err := s.domainRepo.FindByKeys(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Empty(found)
	s.Equal(0, counter.N())
}

func (s *DBRepositoryTestSuite) TestUpsert() {
	s.createTestDomains()

	err := s.domainRepo.Upsert(s.ctx, []models.Domain{
		{DomainID: "1abcA01", FamilyID: "1.10.8.20", FamilyName: "Renamed"},
		{DomainID: "4newD01", FamilyID: "1.20.5.170", FamilyName: "Single alpha-helices"},
	})
	s.Require().NoError(err)

	n, err := s.domainRepo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), n)

	found, err := s.domainRepo.FindByKeys(s.ctx, nil, []string{"1abcA01"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Renamed", found[0].FamilyName)
	s.Equal(uint(123), found[0].ID)
}

func (s *DBRepositoryTestSuite) TestFindByKeys_ClosedDatabase() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())

	_, err = s.domainRepo.FindByKeys(s.ctx, []uint{1}, nil)
	s.Error(err)
}
