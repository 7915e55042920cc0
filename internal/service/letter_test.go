package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/filestore"
	"esurat/backend/internal/security"
	"esurat/backend/internal/stamp"
	"esurat/backend/internal/storage/memory"
)

var pdfBytes = []byte("%PDF-1.4\nisi dokumen uji\n%%EOF")

// fakeStamper 记录每次盖章调用并原样返回文档
type fakeStamper struct {
	calls []stampCall
}

type stampCall struct {
	verificationID string
	stamps         []stamp.Stamp
}

func (f *fakeStamper) StampDocument(pdf []byte, verificationID string, stamps []stamp.Stamp) ([]byte, error) {
	f.calls = append(f.calls, stampCall{verificationID: verificationID, stamps: stamps})
	out := make([]byte, len(pdf))
	copy(out, pdf)
	return out, nil
}

type letterFixture struct {
	store   *memory.Store
	files   filestore.Store
	stamper *fakeStamper
	svc     *LetterService
}

func newLetterFixture(t *testing.T) *letterFixture {
	t.Helper()

	files, err := filestore.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	store := memory.NewStore()
	stamper := &fakeStamper{}
	stamps := stamp.NewCoordinator(stamper, files, "http://localhost:8080/verify", zap.NewNop())

	return &letterFixture{
		store:   store,
		files:   files,
		stamper: stamper,
		svc:     NewLetterService(store, files, stamps, zap.NewNop()),
	}
}

func (f *letterFixture) create(t *testing.T, input CreateLetterInput) *domain.Letter {
	t.Helper()
	if input.CreatorID == "" {
		input.CreatorID = "creator"
	}
	if input.Number == "" {
		input.Number = "001/SK/2025"
	}
	if input.Title == "" {
		input.Title = "Surat Keputusan"
	}
	if input.FileData == nil {
		input.FileData = pdfBytes
	}
	if input.Filename == "" {
		input.Filename = "surat.pdf"
	}
	letter, err := f.svc.Create(input)
	require.NoError(t, err)
	return letter
}

func TestCreateLetter(t *testing.T) {
	t.Run("创建草稿并落盘文件", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{
			Approvers: []ApproverInput{
				{UserID: "u1", Order: 1},
				{UserID: "u2", Order: 2},
			},
		})

		assert.Equal(t, domain.StatusDraft, letter.Status)
		assert.NotEmpty(t, letter.QRHash)
		assert.NotContains(t, letter.QRHash, "-")
		assert.NotEmpty(t, letter.FileDraft)

		// 草稿文件可读
		data, err := f.files.Read(letter.FileDraft)
		require.NoError(t, err)
		assert.Equal(t, pdfBytes, data)

		chain, err := f.svc.Approvers(letter.ID)
		require.NoError(t, err)
		assert.Len(t, chain, 2)

		logs, err := f.svc.Activities(letter.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.ActivityCreate, logs[0].Action)
	})

	t.Run("拒绝非 PDF 文件", func(t *testing.T) {
		f := newLetterFixture(t)
		_, err := f.svc.Create(CreateLetterInput{
			CreatorID: "creator",
			FileData:  []byte("bukan pdf"),
			Filename:  "surat.pdf",
		})
		assert.ErrorIs(t, err, security.ErrNotPDF)
	})

	t.Run("缺少文件", func(t *testing.T) {
		f := newLetterFixture(t)
		_, err := f.svc.Create(CreateLetterInput{CreatorID: "creator"})
		assert.ErrorIs(t, err, ErrMissingFile)
	})

	t.Run("审批链中重复用户", func(t *testing.T) {
		f := newLetterFixture(t)
		_, err := f.svc.Create(CreateLetterInput{
			CreatorID: "creator",
			FileData:  pdfBytes,
			Approvers: []ApproverInput{
				{UserID: "u1", Order: 1},
				{UserID: "u1", Order: 2},
			},
		})
		assert.ErrorIs(t, err, ErrDuplicateApprover)
	})
}

func TestSetApprovers(t *testing.T) {
	f := newLetterFixture(t)
	letter := f.create(t, CreateLetterInput{})

	t.Run("非创建人不可修改", func(t *testing.T) {
		err := f.svc.SetApprovers(letter.ID, "stranger", []ApproverInput{{UserID: "u1", Order: 1}})
		assert.ErrorIs(t, err, ErrNotCreator)
	})

	t.Run("草稿状态可替换整条链", func(t *testing.T) {
		require.NoError(t, f.svc.SetApprovers(letter.ID, "creator", []ApproverInput{
			{UserID: "u1", Order: 1},
			{UserID: "u2", Order: 2},
		}))
		require.NoError(t, f.svc.SetApprovers(letter.ID, "creator", []ApproverInput{
			{UserID: "u3", Order: 1},
		}))

		chain, err := f.svc.Approvers(letter.ID)
		require.NoError(t, err)
		require.Len(t, chain, 1)
		assert.Equal(t, "u3", chain[0].UserID)
	})

	t.Run("提交后链被锁定", func(t *testing.T) {
		_, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)

		err = f.svc.SetApprovers(letter.ID, "creator", []ApproverInput{{UserID: "u4", Order: 1}})
		assert.ErrorIs(t, err, ErrChainLocked)
	})
}

func TestSubmit(t *testing.T) {
	t.Run("提交进入审批并通知首位审批人", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{
			Approvers: []ApproverInput{
				{UserID: "u2", Order: 2},
				{UserID: "u1", Order: 1},
			},
		})

		result, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPendingApproval, result.Letter.Status)
		assert.NotNil(t, result.Letter.SubmittedAt)

		require.Len(t, result.Events, 1)
		assert.Equal(t, domain.EventNotifyNextApprover, result.Events[0].Type)
		assert.Equal(t, "u1", result.Events[0].TargetUserID)
	})

	t.Run("非创建人不可提交", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{Approvers: []ApproverInput{{UserID: "u1", Order: 1}}})

		_, err := f.svc.Submit(letter.ID, "stranger")
		assert.ErrorIs(t, err, ErrNotCreator)
	})

	t.Run("重复提交被拒绝", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{Approvers: []ApproverInput{{UserID: "u1", Order: 1}}})

		_, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)
		_, err = f.svc.Submit(letter.ID, "creator")
		assert.ErrorIs(t, err, ErrStatusInvalid)
	})

	t.Run("没有任何审批人不可提交", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{})

		_, err := f.svc.Submit(letter.ID, "creator")
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestApproveChain(t *testing.T) {
	f := newLetterFixture(t)

	parafPage, parafX, parafY, parafSize := 3, 0.2, 0.9, 48.0
	letter := f.create(t, CreateLetterInput{
		QRPlacement:      domain.Placement{Page: 1, XPercent: 0.8, YPercent: 0.1, Size: 80},
		ParafPlacement:   domain.Placement{Page: 1, XPercent: 0.5, YPercent: 0.5, Size: 40},
		AssignedSignerID: "signer",
		Approvers: []ApproverInput{
			{UserID: "u1", Order: 1},
			{UserID: "u2", Order: 2,
				ParafPage: &parafPage, ParafXPercent: &parafX, ParafYPercent: &parafY, ParafSize: &parafSize},
		},
	})
	_, err := f.svc.Submit(letter.ID, "creator")
	require.NoError(t, err)

	t.Run("缺少签名图片", func(t *testing.T) {
		_, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u1", SignatureImage: "  "})
		assert.ErrorIs(t, err, ErrMissingSignature)
	})

	t.Run("不在链中的用户", func(t *testing.T) {
		_, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "stranger", SignatureImage: "sig"})
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("未轮到的审批人", func(t *testing.T) {
		_, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u2", SignatureImage: "sig"})
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	var firstStamped string

	t.Run("首次审批叠加 QR 与默认批签", func(t *testing.T) {
		result, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u1", SignatureImage: "sig-u1"})
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPendingApproval, result.Letter.Status)
		assert.False(t, result.ChainComplete)
		assert.NotEmpty(t, result.Letter.FileStamped)
		firstStamped = result.Letter.FileStamped

		require.Len(t, result.Events, 1)
		assert.Equal(t, domain.EventNotifyNextApprover, result.Events[0].Type)
		assert.Equal(t, "u2", result.Events[0].TargetUserID)

		require.Len(t, f.stamper.calls, 1)
		call := f.stamper.calls[0]
		assert.Equal(t, letter.QRHash, call.verificationID)
		require.Len(t, call.stamps, 2)
		assert.Equal(t, stamp.TypeQR, call.stamps[0].Type)
		assert.Equal(t, "http://localhost:8080/verify/"+letter.QRHash, call.stamps[0].Data)
		assert.Equal(t, stamp.TypeImage, call.stamps[1].Type)
		assert.Equal(t, 0.5, call.stamps[1].XPercent) // 公文级默认批签位置
		assert.Equal(t, "sig-u1", call.stamps[1].Data)
	})

	t.Run("末位审批完成链并通知签署人", func(t *testing.T) {
		result, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u2", SignatureImage: "sig-u2"})
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPendingSign, result.Letter.Status)
		assert.True(t, result.ChainComplete)
		assert.NotNil(t, result.Letter.ApprovedAt)

		require.Len(t, result.Events, 1)
		assert.Equal(t, domain.EventNotifySigner, result.Events[0].Type)
		assert.Equal(t, "signer", result.Events[0].TargetUserID)

		// 已有盖章版：本次只叠加批签，使用审批人级覆盖位置
		require.Len(t, f.stamper.calls, 2)
		call := f.stamper.calls[1]
		require.Len(t, call.stamps, 1)
		assert.Equal(t, stamp.TypeImage, call.stamps[0].Type)
		assert.Equal(t, 3, call.stamps[0].Page)
		assert.Equal(t, 0.2, call.stamps[0].XPercent)

		// 旧盖章版已被清理，草稿保留
		_, err = f.files.Read(firstStamped)
		assert.ErrorIs(t, err, filestore.ErrFileNotFound)
		_, err = f.files.Read(letter.FileDraft)
		assert.NoError(t, err)

		// 审批记录状态已推进
		chain, err := f.svc.Approvers(letter.ID)
		require.NoError(t, err)
		for _, row := range chain {
			assert.Equal(t, domain.ApproverApproved, row.Status)
			assert.NotNil(t, row.ApprovedAt)
		}
	})

	t.Run("链完成后再审批被拒绝", func(t *testing.T) {
		_, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u2", SignatureImage: "sig"})
		assert.ErrorIs(t, err, ErrStatusInvalid)
	})
}

func TestApproveLegacySingleApprover(t *testing.T) {
	f := newLetterFixture(t)
	letter := f.create(t, CreateLetterInput{
		AssignedApproverID: "boss",
		AssignedSignerID:   "signer",
	})
	_, err := f.svc.Submit(letter.ID, "creator")
	require.NoError(t, err)

	t.Run("非指定审批人", func(t *testing.T) {
		_, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "other", SignatureImage: "sig"})
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("指定审批人一步完成", func(t *testing.T) {
		result, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "boss", SignatureImage: "sig"})
		require.NoError(t, err)
		assert.True(t, result.ChainComplete)
		assert.Equal(t, domain.StatusPendingSign, result.Letter.Status)
	})
}

func TestReject(t *testing.T) {
	setup := func(t *testing.T) (*letterFixture, *domain.Letter) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{
			AssignedSignerID: "signer",
			Approvers:        []ApproverInput{{UserID: "u1", Order: 1}, {UserID: "u2", Order: 2}},
		})
		_, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)
		return f, letter
	}

	t.Run("理由必填", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "u1", Reason: "   "})
		assert.ErrorIs(t, err, ErrMissingReason)
	})

	t.Run("未轮到的审批人不可驳回", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "u2", Reason: "tidak sesuai"})
		assert.ErrorIs(t, err, ErrNotEligible)
	})

	t.Run("当前审批人驳回后通知创建人", func(t *testing.T) {
		f, letter := setup(t)
		result, err := f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "u1", Reason: "format salah"})
		require.NoError(t, err)

		assert.Equal(t, domain.StatusRejected, result.Letter.Status)
		assert.Equal(t, "format salah", result.Letter.RejectionReason)

		require.Len(t, result.Events, 1)
		assert.Equal(t, domain.EventNotifyCreatorRejected, result.Events[0].Type)
		assert.Equal(t, "creator", result.Events[0].TargetUserID)

		chain, err := f.svc.Approvers(letter.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ApproverRejected, chain[0].Status)
		assert.Equal(t, domain.ApproverPending, chain[1].Status)
	})

	t.Run("待签署阶段仅签署人可驳回", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u1", SignatureImage: "s1"})
		require.NoError(t, err)
		_, err = f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u2", SignatureImage: "s2"})
		require.NoError(t, err)

		_, err = f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "u1", Reason: "bukan hak saya"})
		assert.ErrorIs(t, err, ErrNotSigner)

		result, err := f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "signer", Reason: "perlu revisi"})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, result.Letter.Status)
	})

	t.Run("终态不可驳回", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "u1", Reason: "a"})
		require.NoError(t, err)

		_, err = f.svc.Reject(RejectInput{LetterID: letter.ID, ActorID: "u1", Reason: "b"})
		assert.ErrorIs(t, err, ErrStatusInvalid)
	})
}

func TestUploadSigned(t *testing.T) {
	setup := func(t *testing.T) (*letterFixture, *domain.Letter) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{
			AssignedSignerID: "signer",
			Approvers:        []ApproverInput{{UserID: "u1", Order: 1}},
		})
		_, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)
		_, err = f.svc.Approve(ApproveInput{LetterID: letter.ID, ActorID: "u1", SignatureImage: "s1"})
		require.NoError(t, err)
		return f, letter
	}

	t.Run("签署完成进入终态并广播", func(t *testing.T) {
		f, letter := setup(t)
		result, err := f.svc.UploadSigned(UploadSignedInput{
			LetterID: letter.ID,
			ActorID:  "signer",
			FileData: pdfBytes,
			Filename: "final.pdf",
		})
		require.NoError(t, err)

		assert.Equal(t, domain.StatusSigned, result.Letter.Status)
		assert.NotEmpty(t, result.Letter.FileFinal)
		assert.NotNil(t, result.Letter.SignedAt)

		require.Len(t, result.Events, 2)
		assert.Equal(t, domain.EventNotifyCreatorSigned, result.Events[0].Type)
		assert.Equal(t, "creator", result.Events[0].TargetUserID)
		assert.Equal(t, domain.EventNotifyDisposition, result.Events[1].Type)
	})

	t.Run("非签署人被拒绝", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.UploadSigned(UploadSignedInput{
			LetterID: letter.ID,
			ActorID:  "u1",
			FileData: pdfBytes,
			Filename: "final.pdf",
		})
		assert.ErrorIs(t, err, ErrNotSigner)
	})

	t.Run("签署版必须是 PDF", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.UploadSigned(UploadSignedInput{
			LetterID: letter.ID,
			ActorID:  "signer",
			FileData: []byte("bukan pdf"),
			Filename: "final.pdf",
		})
		assert.ErrorIs(t, err, security.ErrNotPDF)
	})

	t.Run("已签署后不可重复上传", func(t *testing.T) {
		f, letter := setup(t)
		_, err := f.svc.UploadSigned(UploadSignedInput{
			LetterID: letter.ID, ActorID: "signer", FileData: pdfBytes, Filename: "final.pdf",
		})
		require.NoError(t, err)

		_, err = f.svc.UploadSigned(UploadSignedInput{
			LetterID: letter.ID, ActorID: "signer", FileData: pdfBytes, Filename: "final2.pdf",
		})
		assert.ErrorIs(t, err, ErrStatusInvalid)
	})
}

func TestCancel(t *testing.T) {
	f := newLetterFixture(t)
	letter := f.create(t, CreateLetterInput{Approvers: []ApproverInput{{UserID: "u1", Order: 1}}})

	t.Run("非创建人不可取消", func(t *testing.T) {
		_, err := f.svc.Cancel(letter.ID, "stranger")
		assert.ErrorIs(t, err, ErrNotCreator)
	})

	t.Run("审批中可取消", func(t *testing.T) {
		_, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)

		result, err := f.svc.Cancel(letter.ID, "creator")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, result.Letter.Status)
	})

	t.Run("已取消后不可再取消", func(t *testing.T) {
		_, err := f.svc.Cancel(letter.ID, "creator")
		assert.ErrorIs(t, err, ErrStatusInvalid)
	})
}

func TestDelete(t *testing.T) {
	t.Run("创建人删除草稿并清理文件", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{})

		require.NoError(t, f.svc.Delete(DeleteInput{LetterID: letter.ID, ActorID: "creator"}))

		_, err := f.svc.Get(letter.ID)
		assert.Error(t, err)
		_, err = f.files.Read(letter.FileDraft)
		assert.ErrorIs(t, err, filestore.ErrFileNotFound)
	})

	t.Run("流程中的公文不可删除", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{Approvers: []ApproverInput{{UserID: "u1", Order: 1}}})
		_, err := f.svc.Submit(letter.ID, "creator")
		require.NoError(t, err)

		err = f.svc.Delete(DeleteInput{LetterID: letter.ID, ActorID: "creator"})
		assert.ErrorIs(t, err, ErrNotDeletable)
	})

	t.Run("非创建人仅管理员可删除", func(t *testing.T) {
		f := newLetterFixture(t)
		letter := f.create(t, CreateLetterInput{})

		err := f.svc.Delete(DeleteInput{LetterID: letter.ID, ActorID: "stranger"})
		assert.ErrorIs(t, err, ErrNotCreator)

		require.NoError(t, f.svc.Delete(DeleteInput{LetterID: letter.ID, ActorID: "stranger", IsAdmin: true}))
	})
}
