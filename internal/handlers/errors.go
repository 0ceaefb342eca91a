package handlers

import "go.mongodb.org/mongo-driver/bson/primitive"

type outOfStockError struct {
	ProductID primitive.ObjectID
	VariantID primitive.ObjectID
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return "variant out of stock"
}

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return "product not found"
}

type variantNotFoundError struct {
	ProductID primitive.ObjectID
	VariantID primitive.ObjectID
}

func (e variantNotFoundError) Error() string {
	return "variant not found"
}
