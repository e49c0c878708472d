package submissionservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	rounddb "github.com/esolangs/codeguessing/app/modules/round/infrastructure/repositories"
	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/operation"
	"github.com/esolangs/codeguessing/app/shared/results"
)

// ArchiveFile is one file in a round download, with its path already
// anonymized: entries are keyed by display position, never by author.
type ArchiveFile struct {
	Path    string
	Content []byte
}

// Archive collects a round's files for a bulk download. During writing a
// caller only gets their own entry back; once guessing starts everyone gets
// every positioned entry, laid out by position.
func (s *Service) Archive(ctx context.Context, roundNum, viewerID int64) (results.OperationResult[[]ArchiveFile, error], error) {
	return operation.WithTelemetry(ctx, s.tel, "ArchiveRound", strconv.FormatInt(roundNum, 10),
		func(ctx context.Context) (results.OperationResult[[]ArchiveFile, error], error) {
			round, err := s.roundRepo.GetByNum(ctx, nil, roundNum)
			if err != nil {
				if errors.Is(err, rounddb.ErrNotFound) {
					return results.FailureResult[[]ArchiveFile](error(shared.NewNotFoundError("round %d does not exist", roundNum))), nil
				}
				return results.OperationResult[[]ArchiveFile, error]{}, err
			}

			switch round.Stage {
			case rounddb.StagePending:
				return results.FailureResult[[]ArchiveFile](error(shared.NewValidationError("round %d has no entries yet", roundNum))), nil

			case rounddb.StageWriting:
				files, err := s.subRepo.ListFiles(ctx, nil, roundNum, viewerID)
				if err != nil {
					return results.OperationResult[[]ArchiveFile, error]{}, err
				}
				out := make([]ArchiveFile, len(files))
				for i, f := range files {
					out[i] = ArchiveFile{Path: f.Name, Content: f.Content}
				}
				return results.SuccessResult[[]ArchiveFile, error](out), nil

			default:
				subs, err := s.subRepo.ListByRound(ctx, nil, roundNum)
				if err != nil {
					return results.OperationResult[[]ArchiveFile, error]{}, err
				}
				positions := make(map[int64]int, len(subs))
				for _, sub := range subs {
					if sub.Position != nil {
						positions[sub.AuthorID] = *sub.Position
					}
				}
				files, err := s.subRepo.ListRoundFiles(ctx, nil, roundNum, nil)
				if err != nil {
					return results.OperationResult[[]ArchiveFile, error]{}, err
				}
				var out []ArchiveFile
				for _, f := range files {
					pos, ok := positions[f.AuthorID]
					if !ok {
						continue
					}
					out = append(out, ArchiveFile{
						Path:    fmt.Sprintf("%d/%s", pos, f.Name),
						Content: f.Content,
					})
				}
				return results.SuccessResult[[]ArchiveFile, error](out), nil
			}
		})
}
