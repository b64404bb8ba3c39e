package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"premium_gallery/internal/domain/models"
	"premium_gallery/internal/lib/contenttype"
	"premium_gallery/internal/lib/locker"
	"premium_gallery/internal/lib/logger/handlers/slogdiscard"
	"premium_gallery/internal/processor"
	"premium_gallery/internal/repository"
	"premium_gallery/internal/storage"
	filestorage "premium_gallery/internal/storage/filestorage"
	"premium_gallery/internal/transport/http/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGalleryRepository struct {
	mock.Mock
}

func (m *MockGalleryRepository) CreateGallery(ctx context.Context, gallery models.Gallery) (uuid.UUID, error) {
	args := m.Called(ctx, gallery)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockGalleryRepository) GetGalleryByID(ctx context.Context, id uuid.UUID) (models.Gallery, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Gallery), args.Error(1)
}

func (m *MockGalleryRepository) GetGalleries(ctx context.Context, page, perPage int) ([]models.Gallery, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]models.Gallery), args.Int(1), args.Error(2)
}

func (m *MockGalleryRepository) DeleteGallery(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// memItemRepo хранилище элементов в памяти. WithinGallery сериализует транзакции
// и откатывает изменения, если fn вернула ошибку.
type memItemRepo struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	items map[uuid.UUID]models.GalleryItem
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[uuid.UUID]models.GalleryItem)}
}

func (r *memItemRepo) WithinGallery(ctx context.Context, galleryID uuid.UUID, fn func(tx repository.GalleryItemTx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := make(map[uuid.UUID]models.GalleryItem, len(r.items))
	for k, v := range r.items {
		snapshot[k] = v
	}
	r.mu.Unlock()

	if err := fn(memTx{r}); err != nil {
		r.mu.Lock()
		r.items = snapshot
		r.mu.Unlock()
		return err
	}

	return nil
}

func (r *memItemRepo) FindByID(_ context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, storage.ErrItemNotFound
	}
	return &item, nil
}

func (r *memItemRepo) FindThumbnail(_ context.Context, parentID uuid.UUID, variant string) (*models.GalleryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.findThumbnailLocked(parentID, variant)
}

func (r *memItemRepo) findThumbnailLocked(parentID uuid.UUID, variant string) (*models.GalleryItem, error) {
	for _, item := range r.items {
		if item.ParentID != nil && *item.ParentID == parentID && *item.Variant == variant {
			return &item, nil
		}
	}
	return nil, storage.ErrItemNotFound
}

func (r *memItemRepo) CreateThumbnail(_ context.Context, item *models.GalleryItem) (*models.GalleryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, err := r.findThumbnailLocked(*item.ParentID, *item.Variant); err == nil {
		return existing, nil
	}
	if _, ok := r.items[*item.ParentID]; !ok {
		return nil, errors.New("parent does not exist")
	}

	r.items[item.ID] = *item
	return item, nil
}

func (r *memItemRepo) ListThumbnails(_ context.Context, parentID uuid.UUID) ([]models.GalleryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var thumbs []models.GalleryItem
	for _, item := range r.items {
		if item.ParentID != nil && *item.ParentID == parentID {
			thumbs = append(thumbs, item)
		}
	}
	sort.Slice(thumbs, func(i, j int) bool { return *thumbs[i].Variant < *thumbs[j].Variant })
	return thumbs, nil
}

func (r *memItemRepo) ListTopLevel(_ context.Context, galleryID uuid.UUID) ([]models.GalleryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.topLevelLocked(galleryID), nil
}

func (r *memItemRepo) topLevelLocked(galleryID uuid.UUID) []models.GalleryItem {
	var items []models.GalleryItem
	for _, item := range r.items {
		if item.GalleryID == galleryID && item.ParentID == nil {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return *items[i].Position < *items[j].Position })
	return items
}

func (r *memItemRepo) CountTopLevel(_ context.Context, galleryID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.topLevelLocked(galleryID)), nil
}

func (r *memItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteLocked(id)
}

func (r *memItemRepo) deleteLocked(id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return storage.ErrItemNotFound
	}
	delete(r.items, id)

	// каскад на миниатюры
	for k, item := range r.items {
		if item.ParentID != nil && *item.ParentID == id {
			delete(r.items, k)
		}
	}
	return nil
}

type memTx struct {
	r *memItemRepo
}

func (t memTx) FindByID(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	return t.r.FindByID(ctx, id)
}

func (t memTx) CountTopLevel(ctx context.Context, galleryID uuid.UUID) (int, error) {
	return t.r.CountTopLevel(ctx, galleryID)
}

func (t memTx) TopLevelPositions(_ context.Context, galleryID uuid.UUID) ([]int, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	var positions []int
	for _, item := range t.r.topLevelLocked(galleryID) {
		positions = append(positions, *item.Position)
	}
	return positions, nil
}

func (t memTx) Insert(_ context.Context, item *models.GalleryItem) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	t.r.items[item.ID] = *item
	return nil
}

func (t memTx) ShiftPositionsAfter(_ context.Context, galleryID uuid.UUID, position int) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	for k, item := range t.r.items {
		if item.GalleryID == galleryID && item.ParentID == nil && *item.Position > position {
			p := *item.Position - 1
			item.Position = &p
			t.r.items[k] = item
		}
	}
	return nil
}

func (t memTx) Delete(_ context.Context, id uuid.UUID) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	return t.r.deleteLocked(id)
}

// failingProcessor процессор, который не может ничего сгенерировать
type failingProcessor struct {
	processor.Processor
}

func (p failingProcessor) Resample(context.Context, []byte, int, int) ([]byte, error) {
	return nil, errors.New("corrupt image")
}

func (p failingProcessor) Name() string {
	return "failing"
}

// gatedProcessor сообщает о начале Resample и ждет, пока тест его отпустит
type gatedProcessor struct {
	processor.Processor
	started chan struct{}
	release chan struct{}
	calls   *int32
}

func (p gatedProcessor) Resample(ctx context.Context, src []byte, w, h int) ([]byte, error) {
	if atomic.AddInt32(p.calls, 1) == 1 {
		close(p.started)
	}
	<-p.release
	return p.Processor.Resample(ctx, src, w, h)
}

// failingStore отказывает в записи, остальное делегирует
type failingStore struct {
	filestorage.FileStorage
}

func (s failingStore) Store(context.Context, []byte, string, string) (string, error) {
	return "", errors.New("disk full")
}

type testEnv struct {
	svc       *ItemService
	galleries *MockGalleryRepository
	items     *memItemRepo
	files     *filestorage.LocalFileStorage
	galleryID uuid.UUID
}

type envOption func(*serviceDeps)

type serviceDeps struct {
	files     filestorage.FileStorage
	processor processor.Processor
	cfg       Config
}

func withProcessor(wrap func(processor.Processor) processor.Processor) envOption {
	return func(d *serviceDeps) { d.processor = wrap(d.processor) }
}

func withStore(wrap func(filestorage.FileStorage) filestorage.FileStorage) envOption {
	return func(d *serviceDeps) { d.files = wrap(d.files) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()

	files, err := filestorage.NewLocalFileStorage(t.TempDir(), "http://test.local", 0)
	require.NoError(t, err)

	proc, err := processor.New(log, processor.ChoiceImaging)
	require.NoError(t, err)

	env := &testEnv{
		galleries: new(MockGalleryRepository),
		items:     newMemItemRepo(),
		files:     files,
		galleryID: uuid.New(),
	}
	deps := &serviceDeps{
		files:     files,
		processor: proc,
		cfg:       Config{PathPrefix: "galleries", DefaultThumbnails: "small=50x50,bad,large=200x200"},
	}
	for _, opt := range opts {
		opt(deps)
	}

	env.galleries.On("GetGalleryByID", mock.Anything, env.galleryID).Return(models.Gallery{ID: env.galleryID}, nil)
	env.galleries.On("GetGalleryByID", mock.Anything, mock.Anything).Return(models.Gallery{}, storage.ErrGalleryNotFound)

	env.svc = NewItemService(
		log,
		env.galleries,
		env.items,
		deps.files,
		deps.processor,
		contenttype.New(nil),
		locker.NewKeyedMutex(),
		deps.cfg,
	)

	return env
}

func (e *testEnv) upload(t *testing.T, filename string, data []byte) *models.GalleryItem {
	t.Helper()

	item, err := e.svc.Create(context.Background(), dto.CreateItemInput{
		GalleryID: e.galleryID,
		Filename:  filename,
		Data:      data,
	})
	require.NoError(t, err)

	return item
}

func (e *testEnv) positions(t *testing.T) []int {
	t.Helper()

	items, err := e.items.ListTopLevel(context.Background(), e.galleryID)
	require.NoError(t, err)

	positions := make([]int, 0, len(items))
	for _, item := range items {
		positions = append(positions, *item.Position)
	}
	return positions
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// orientedJPEG кодирует JPEG w x h и вставляет сразу за SOI сегмент APP1
// с единственным тегом EXIF Orientation.
func orientedJPEG(t *testing.T, w, h int, orientation uint16) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}

	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, img, nil))
	raw := enc.Bytes()

	var tiff bytes.Buffer
	tiff.WriteString("II")
	le := binary.LittleEndian
	_ = binary.Write(&tiff, le, uint16(0x002a))
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint16(1))      // число тегов
	_ = binary.Write(&tiff, le, uint16(0x0112)) // Orientation
	_ = binary.Write(&tiff, le, uint16(3))      // SHORT
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, orientation)
	_ = binary.Write(&tiff, le, uint16(0))
	_ = binary.Write(&tiff, le, uint32(0)) // следующего IFD нет

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var out bytes.Buffer
	out.Write(raw[:2])
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])

	return out.Bytes()
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func intPtr(v int) *int {
	return &v
}
