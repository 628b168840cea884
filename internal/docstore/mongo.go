package docstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCollection forwards every Collection operation to the driver with
// option translation only; consistency is whatever the server provides.
type MongoCollection struct {
	col *mongo.Collection
}

func NewMongoCollection(col *mongo.Collection) *MongoCollection {
	return &MongoCollection{col: col}
}

func (m *MongoCollection) Get(ctx context.Context, id string) (Document, error) {
	var d Document
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return withID(d), nil
}

func (m *MongoCollection) Create(ctx context.Context, doc Document) (string, error) {
	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	stored := cloneDoc(doc)
	stored["_id"] = id
	delete(stored, "id")
	if _, err := m.col.InsertOne(ctx, stored); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MongoCollection) Set(ctx context.Context, id string, doc Document) error {
	stored := cloneDoc(doc)
	stored["_id"] = id
	delete(stored, "id")
	opts := options.Replace().SetUpsert(true)
	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": id}, stored, opts)
	return err
}

func (m *MongoCollection) Update(ctx context.Context, id string, fields Document) error {
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" || k == "id" {
			continue
		}
		set[k] = v
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCollection) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCollection) Query(ctx context.Context, opts Options) ([]Document, string, error) {
	conds, err := buildFilters(opts.Filters)
	if err != nil {
		return nil, "", err
	}

	orderKey := opts.OrderBy
	if orderKey == "" {
		orderKey = "_id"
	}
	dir := 1
	cmp := "$gt"
	if opts.Desc {
		dir = -1
		cmp = "$lt"
	}

	startAfter, err := DecodeCursor(opts.StartAfter)
	if err != nil {
		return nil, "", fmt.Errorf("invalid cursor: %w", err)
	}
	if startAfter != "" {
		cursorCond, err := m.cursorCondition(ctx, orderKey, cmp, startAfter)
		if err != nil {
			return nil, "", err
		}
		conds = append(conds, cursorCond)
	}

	sort := bson.D{{Key: orderKey, Value: dir}}
	if orderKey != "_id" {
		sort = append(sort, bson.E{Key: "_id", Value: dir})
	}
	fopts := options.Find().SetSort(sort)
	if opts.Limit > 0 {
		// fetch one extra to detect whether a next page exists
		fopts.SetLimit(int64(opts.Limit + 1))
	}

	cur, err := m.col.Find(ctx, andAll(conds), fopts)
	if err != nil {
		return nil, "", err
	}
	defer cur.Close(ctx)

	out := []Document{}
	for cur.Next(ctx) {
		var d Document
		if err := cur.Decode(&d); err != nil {
			return nil, "", err
		}
		out = append(out, withID(d))
	}
	if err := cur.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
		next = EncodeCursor(out[opts.Limit-1]["id"].(string))
	}
	return out, next, nil
}

// cursorCondition resumes strictly after the cursor document. For non-id
// orderings the cursor doc's sort value is looked up and tie-broken on _id.
func (m *MongoCollection) cursorCondition(ctx context.Context, orderKey, cmp, afterID string) (bson.M, error) {
	if orderKey == "_id" {
		return bson.M{"_id": bson.M{cmp: afterID}}, nil
	}
	var cursorDoc Document
	if err := m.col.FindOne(ctx, bson.M{"_id": afterID}).Decode(&cursorDoc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("invalid cursor: %w", ErrNotFound)
		}
		return nil, err
	}
	v := cursorDoc[orderKey]
	return bson.M{"$or": bson.A{
		bson.M{orderKey: bson.M{cmp: v}},
		bson.M{orderKey: v, "_id": bson.M{cmp: afterID}},
	}}, nil
}

func (m *MongoCollection) Count(ctx context.Context, filters []Filter) (int64, error) {
	conds, err := buildFilters(filters)
	if err != nil {
		return 0, err
	}
	return m.col.CountDocuments(ctx, andAll(conds))
}

func (m *MongoCollection) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	wms := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case WriteSet:
			stored := cloneDoc(op.Doc)
			stored["_id"] = op.ID
			delete(stored, "id")
			wms = append(wms, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": op.ID}).SetReplacement(stored).SetUpsert(true))
		case WriteUpdate:
			set := bson.M{}
			for k, v := range op.Doc {
				if k == "_id" || k == "id" {
					continue
				}
				set[k] = v
			}
			wms = append(wms, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": op.ID}).SetUpdate(bson.M{"$set": set}))
		case WriteDelete:
			wms = append(wms, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.ID}))
		default:
			return fmt.Errorf("unsupported write kind %d", op.Kind)
		}
	}
	_, err := m.col.BulkWrite(ctx, wms, options.BulkWrite().SetOrdered(true))
	return err
}

// RunTransaction executes fn inside a driver transaction; collection calls
// made with the callback context participate in it.
func (m *MongoCollection) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.col.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func buildFilters(filters []Filter) ([]bson.M, error) {
	conds := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case OpEq, OpArrayContains:
			// equality against an array field matches membership natively
			conds = append(conds, bson.M{f.Field: f.Value})
		case OpLt:
			conds = append(conds, bson.M{f.Field: bson.M{"$lt": f.Value}})
		case OpLte:
			conds = append(conds, bson.M{f.Field: bson.M{"$lte": f.Value}})
		case OpGt:
			conds = append(conds, bson.M{f.Field: bson.M{"$gt": f.Value}})
		case OpGte:
			conds = append(conds, bson.M{f.Field: bson.M{"$gte": f.Value}})
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return conds, nil
}

func andAll(conds []bson.M) bson.M {
	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	default:
		arr := make(bson.A, len(conds))
		for i, c := range conds {
			arr[i] = c
		}
		return bson.M{"$and": arr}
	}
}

func withID(d Document) Document {
	if v, ok := d["_id"]; ok {
		d["id"] = v
	}
	return d
}

func cloneDoc(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
